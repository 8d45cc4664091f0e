package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/client"
	"github.com/policyanalytics/dashboard/internal/config"
	"github.com/policyanalytics/dashboard/internal/handlers"
	"github.com/policyanalytics/dashboard/internal/metrics"
	"github.com/policyanalytics/dashboard/internal/pages"
	"github.com/policyanalytics/dashboard/internal/realtime"
	"github.com/policyanalytics/dashboard/internal/render"
)

const liveSessionPath = "/ws/live"

// Server represents the policy dashboard server
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	version    string
	api        client.API
	metrics    *metrics.MetricsCollector
	hub        *realtime.Hub
	router     *gin.Engine
	httpServer *http.Server
}

type Option func(*Server)

// WithAPI replaces the backend client built from configuration
func WithAPI(api client.API) Option {
	return func(s *Server) {
		s.api = api
	}
}

// NewServer wires the backend client, page controllers, templates and
// middleware into an HTTP server.
func NewServer(cfg *config.Config, logger *zap.Logger, version string, opts ...Option) (*Server, error) {
	s := &Server{
		config:  cfg,
		logger:  logger,
		version: version,
		metrics: metrics.NewMetricsCollector(logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.api == nil {
		s.api = client.New(client.Config{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.TimeoutDuration(),
		}, client.WithRecorder(s.metrics), client.WithLogger(logger))
	}

	if err := s.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:           cfg.Server.HTTP.Addr(),
		Handler:        s.router,
		ReadTimeout:    time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.HTTP.IdleTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.HTTP.MaxHeaderBytes,
	}

	return s, nil
}

func (s *Server) setupRouter() error {
	renderer, err := render.New(!s.config.IsProduction())
	if err != nil {
		return err
	}

	router := gin.New()
	router.HTMLRender = renderer

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger(s.logger))
	if s.config.Metrics.Enabled {
		router.Use(Metrics(s.metrics))
	}
	router.Use(CORS(s.config.Security.CORS.AllowedOrigins))
	if rl := s.config.Security.RateLimiting; rl.Enabled {
		router.Use(RateLimit(rl.RequestsPerMinute, rl.BurstSize, "/healthz", s.config.Metrics.Path))
	}

	deps := pages.Deps{
		API:      s.api,
		Logger:   s.logger,
		Recorder: s.metrics,
	}

	handler := handlers.NewHandler(deps, s.logger, s.version)
	handler.RegisterRoutes(router)

	if s.config.Metrics.Enabled {
		router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	if rt := s.config.Realtime; rt.Enabled {
		s.hub = realtime.NewHub(deps, s.logger, s.metrics, realtime.Options{
			ReadBufferSize:  rt.ReadBufferSize,
			WriteBufferSize: rt.WriteBufferSize,
			SendBufferSize:  rt.SendBufferSize,
			PingInterval:    time.Duration(rt.PingInterval) * time.Second,
			MaxMessageSize:  int64(rt.MaxMessageSize),
			AllowedOrigins:  s.config.Security.CORS.AllowedOrigins,
		})
		router.GET(liveSessionPath, s.hub.HandleWebSocket)
	}

	s.router = router
	return nil
}

// Router exposes the configured engine. Live sessions are accepted only
// while Serve runs; before that /ws/live answers 503.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves until ctx ends or the listener fails
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs the server on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.startBackgroundServices(bgCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", listener.Addr().String()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	}

	cancel()
	return s.Shutdown()
}

func (s *Server) startBackgroundServices(ctx context.Context) {
	if s.hub != nil {
		s.hub.Start(ctx)
	}

	if s.config.Metrics.Enabled && s.config.Metrics.CollectInterval > 0 {
		go s.metrics.StartPeriodicCollection(ctx, time.Duration(s.config.Metrics.CollectInterval)*time.Second)
	}

	s.logger.Info("Background services started")
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.Server.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}

	s.logger.Info("Graceful shutdown completed")
	return nil
}

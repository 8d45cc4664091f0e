package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/policyanalytics/dashboard/internal/client"
	"github.com/policyanalytics/dashboard/internal/config"
	"github.com/policyanalytics/dashboard/internal/server"
)

// Version information
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "policy-dashboard",
		Short:        "Policy analytics dashboard server",
		Version:      Version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Path to configuration file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Policy Analytics Dashboard",
		zap.String("config_path", configPath),
		zap.String("version", Version),
		zap.String("environment", cfg.Environment),
		zap.String("api_base_url", cfg.API.BaseURL))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.NewServer(cfg, logger, Version)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	if err := srv.Start(); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the analytics backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := initLogger(cfg)
			defer logger.Sync()

			api := client.New(client.Config{
				BaseURL: cfg.API.BaseURL,
				Timeout: cfg.API.TimeoutDuration(),
			}, client.WithLogger(logger))

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var (
				health   *client.HealthStatus
				policies int
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				h, err := api.Health(gctx)
				health = h
				return err
			})
			g.Go(func() error {
				list, err := api.ListPolicies(gctx)
				policies = len(list)
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("backend %s unavailable: %w", cfg.API.BaseURL, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "backend %s: %s (%d policies)\n", cfg.API.BaseURL, health.Status, policies)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall check timeout")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "policy-dashboard %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		},
	}
}

// initLogger initializes the application logger
func initLogger(cfg *config.Config) *zap.Logger {
	var zc zap.Config
	if cfg.IsProduction() || cfg.Logging.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	if level, err := zap.ParseAtomicLevel(cfg.Logging.Level); err == nil {
		zc.Level = level
	}

	logger, err := zc.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}

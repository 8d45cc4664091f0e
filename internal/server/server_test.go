package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/policyanalytics/dashboard/internal/client"
	"github.com/policyanalytics/dashboard/internal/config"
	"github.com/policyanalytics/dashboard/internal/models"
)

type stubAPI struct{}

var _ client.API = stubAPI{}

func (stubAPI) ListPolicies(context.Context) ([]models.Policy, error) {
	return []models.Policy{{ID: 1, Name: "Clean Air", Status: models.PolicyStatusActive}}, nil
}

func (stubAPI) GetPolicy(_ context.Context, id string) (*models.Policy, error) {
	return &models.Policy{Name: "Policy " + id}, nil
}

func (stubAPI) CreatePolicy(_ context.Context, p models.NewPolicy) (*models.Policy, error) {
	return &models.Policy{ID: 5, Name: p.Name}, nil
}

func (stubAPI) GetImpactAnalysis(context.Context, string) (*models.ImpactAnalysis, error) {
	return &models.ImpactAnalysis{}, nil
}

func (stubAPI) PredictRisk(context.Context, string) (*models.RiskAssessment, error) {
	return &models.RiskAssessment{OverallRiskLevel: models.RiskLevelLow}, nil
}

func (stubAPI) GetRecommendations(context.Context, string) ([]models.Recommendation, error) {
	return nil, nil
}

func (stubAPI) GetExecutiveReport(context.Context, string) (*models.ExecutiveReport, error) {
	return nil, client.ErrRequestFailed
}

func (stubAPI) GetDashboardMetrics(context.Context) (*models.DashboardMetrics, error) {
	return &models.DashboardMetrics{TotalPolicies: 1}, nil
}

func (stubAPI) Health(context.Context) (*client.HealthStatus, error) {
	return &client.HealthStatus{Status: "healthy"}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.HTTP.ShutdownTimeout = 2
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(cfg, zap.NewNop(), "test", WithAPI(stubAPI{}))
	require.NoError(t, err)
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	router := srv.Router()

	tests := []struct {
		path   string
		status int
	}{
		{"/", http.StatusOK},
		{"/policies", http.StatusOK},
		{"/policies/1", http.StatusOK},
		{"/api/v1/views/dashboard", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
		assert.NotEmpty(t, w.Header().Get(requestIDHeader), tt.path)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `policy_dashboard_http_requests_total{method="GET",route="/policies/:id",status="200"} 1`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
	assert.Contains(t, body, `policy_dashboard_page_loads_total{page="dashboard",status="ready"} 2`)
	assert.Contains(t, body, "policy_dashboard_report_failures_total 1")
}

func TestServer_OptionalRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	cfg.Realtime.Enabled = false
	router := newTestServer(t, cfg).Router()

	for _, path := range []string{"/metrics", liveSessionPath} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestServer_LiveSessionsNeedServe(t *testing.T) {
	router := newTestServer(t, testConfig(t)).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, liveSessionPath, nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 2, "/healthz"))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(origins []string) *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	request := func(router *gin.Engine, origin string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		router.ServeHTTP(w, req)
		return w
	}

	w := request(newRouter([]string{"*"}), "https://anywhere.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	restricted := newRouter([]string{"https://dash.example"})
	w = request(restricted, "https://dash.example")
	assert.Equal(t, "https://dash.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(restricted, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type fakeHTTPRecorder struct {
	mu       sync.Mutex
	inFlight int
	requests []string
}

func (r *fakeHTTPRecorder) IncrementRequests(method, route, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method+" "+route+" "+status)
}

func (r *fakeHTTPRecorder) ObserveRequestDuration(string, string, time.Duration) {}

func (r *fakeHTTPRecorder) IncRequestsInFlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight++
}

func (r *fakeHTTPRecorder) DecRequestsInFlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
}

func TestMetricsAndLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	recorder := &fakeHTTPRecorder{}

	router := gin.New()
	router.Use(Logger(zap.New(core)), Metrics(recorder))
	router.GET("/policies/:id", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/policies/7", nil))

	assert.Equal(t, []string{"GET /policies/:id 502"}, recorder.requests)
	assert.Zero(t, recorder.inFlight)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "/policies/7", entries[0].ContextMap()["path"])
}

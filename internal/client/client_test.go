package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyanalytics/dashboard/internal/models"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{method: r.Method, path: r.URL.EscapedPath(), body: string(data)})
	status, body := b.status, b.body
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (b *fakeBackend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

type observation struct {
	operation string
	err       error
}

type fakeRecorder struct {
	mu           sync.Mutex
	observations []observation
}

func (r *fakeRecorder) ObserveUpstream(operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, observation{operation: operation, err: err})
}

func newTestClient(t *testing.T, status int, body string) (*Client, *fakeBackend, *fakeRecorder) {
	t.Helper()
	backend := &fakeBackend{status: status, body: body}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	rec := &fakeRecorder{}
	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, WithRecorder(rec)), backend, rec
}

func TestClientRoutes(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		body   string
		call   func(c *Client) error
		method string
		path   string
	}{
		{"list policies", `[]`, func(c *Client) error { _, err := c.ListPolicies(ctx); return err }, http.MethodGet, "/api/policies"},
		{"get policy", `{"id":7}`, func(c *Client) error { _, err := c.GetPolicy(ctx, "7"); return err }, http.MethodGet, "/api/policies/7"},
		{"impact", `{"overall_impact_score":72}`, func(c *Client) error { _, err := c.GetImpactAnalysis(ctx, "7"); return err }, http.MethodGet, "/api/policies/7/impact"},
		{"predict risk", `{"overall_risk_level":"high"}`, func(c *Client) error { _, err := c.PredictRisk(ctx, "7"); return err }, http.MethodPost, "/api/policies/7/predict-risk"},
		{"recommendations", `[]`, func(c *Client) error { _, err := c.GetRecommendations(ctx, "7"); return err }, http.MethodGet, "/api/policies/7/recommendations"},
		{"report", `{"generated_at":"2024-01-15T10:30:00"}`, func(c *Client) error { _, err := c.GetExecutiveReport(ctx, "7"); return err }, http.MethodGet, "/api/policies/7/report"},
		{"dashboard metrics", `{"total_policies":1}`, func(c *Client) error { _, err := c.GetDashboardMetrics(ctx); return err }, http.MethodGet, "/api/dashboard/metrics"},
		{"health", `{"status":"healthy"}`, func(c *Client) error { _, err := c.Health(ctx); return err }, http.MethodGet, "/api/health"},
		{"escaped id", `{"id":1}`, func(c *Client) error { _, err := c.GetPolicy(ctx, "a/b"); return err }, http.MethodGet, "/api/policies/a%2Fb"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, backend, rec := newTestClient(t, http.StatusOK, tc.body)

			require.NoError(t, tc.call(c))

			req := backend.last()
			assert.Equal(t, tc.method, req.method)
			assert.Equal(t, tc.path, req.path)
			require.Len(t, rec.observations, 1)
			assert.NoError(t, rec.observations[0].err)
		})
	}
}

func TestClientDecodesBodies(t *testing.T) {
	c, _, _ := newTestClient(t, http.StatusOK, `{
		"overall_risk_level": "high",
		"risk_score": 72,
		"confidence": 0.81,
		"risk_factors": [{"factor_name": "Budget Overrun", "risk_score": 75, "description": "Spending pace"}]
	}`)

	risk, err := c.PredictRisk(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelHigh, risk.OverallRiskLevel)
	assert.Equal(t, 72.0, risk.RiskScore)
	assert.Equal(t, 0.81, risk.Confidence)
	require.Len(t, risk.RiskFactors, 1)
	assert.Equal(t, "Budget Overrun", risk.RiskFactors[0].FactorName)
}

func TestCreatePolicySendsPayload(t *testing.T) {
	c, backend, _ := newTestClient(t, http.StatusOK, `{"id":11,"name":"Clean Air","status":"draft","start_date":"2024-03-01T00:00:00"}`)

	start, err := models.ParseTimestamp("2024-03-01")
	require.NoError(t, err)

	policy, err := c.CreatePolicy(context.Background(), models.NewPolicy{
		Name:        "Clean Air",
		Description: "Reduce emissions",
		Category:    "Environment",
		StartDate:   start,
		Budget:      250000,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, policy.ID)

	req := backend.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/policies", req.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.body), &sent))
	assert.Equal(t, "Clean Air", sent["name"])
	assert.Equal(t, float64(250000), sent["budget"])
}

func TestClientFailuresCollapse(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`},
		{"not found", http.StatusNotFound, `{"detail":"Policy not found"}`},
		{"malformed body", http.StatusOK, `{"id":`},
		{"wrong shape", http.StatusOK, `{"id":"seven"}`},
		{"empty body", http.StatusOK, ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, rec := newTestClient(t, tc.status, tc.body)

			policy, err := c.GetPolicy(context.Background(), "1")
			assert.Nil(t, policy)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRequestFailed))
			assert.Contains(t, err.Error(), "get_policy")

			require.Len(t, rec.observations, 1)
			assert.Error(t, rec.observations[0].err)
		})
	}

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		c := New(Config{BaseURL: srv.URL, Timeout: time.Second})
		_, err := c.ListPolicies(context.Background())
		assert.ErrorIs(t, err, ErrRequestFailed)
	})

	t.Run("canceled context", func(t *testing.T) {
		c, _, _ := newTestClient(t, http.StatusOK, `[]`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.ListPolicies(ctx)
		assert.ErrorIs(t, err, ErrRequestFailed)
	})
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultBaseURL, c.http.BaseURL)
	assert.Equal(t, DefaultTimeout, c.http.GetClient().Timeout)
}

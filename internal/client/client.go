package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/models"
)

const (
	DefaultBaseURL = "https://policy-impact-risk-analytics-platform-api.onrender.com"
	DefaultTimeout = 30 * time.Second

	apiPrefix = "/api"
)

// ErrRequestFailed is returned for every failed backend call, whether the
// transport failed, the status was not 2xx or the body did not decode.
var ErrRequestFailed = errors.New("request failed")

// API is the set of backend operations the dashboard consumes.
type API interface {
	ListPolicies(ctx context.Context) ([]models.Policy, error)
	GetPolicy(ctx context.Context, id string) (*models.Policy, error)
	CreatePolicy(ctx context.Context, policy models.NewPolicy) (*models.Policy, error)
	GetImpactAnalysis(ctx context.Context, id string) (*models.ImpactAnalysis, error)
	PredictRisk(ctx context.Context, id string) (*models.RiskAssessment, error)
	GetRecommendations(ctx context.Context, id string) ([]models.Recommendation, error)
	GetExecutiveReport(ctx context.Context, id string) (*models.ExecutiveReport, error)
	GetDashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// Recorder observes every upstream call.
type Recorder interface {
	ObserveUpstream(operation string, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveUpstream(string, time.Duration, error) {}

// HealthStatus is the backend health payload
type HealthStatus struct {
	Status string `json:"status"`
}

// Config contains backend connection settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithRecorder reports every upstream call to r
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the policy analytics backend over REST. It never
// retries and never caches.
type Client struct {
	http     *resty.Client
	recorder Recorder
	logger   *zap.Logger
}

var _ API = (*Client)(nil)

// New creates a backend client. Zero values in cfg fall back to
// DefaultBaseURL and DefaultTimeout.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(cfg.Timeout).
			SetRetryCount(0),
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListPolicies fetches every policy
func (c *Client) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	var policies []models.Policy
	if err := c.do(ctx, "list_policies", http.MethodGet, "/policies", nil, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// GetPolicy fetches a single policy
func (c *Client) GetPolicy(ctx context.Context, id string) (*models.Policy, error) {
	var policy models.Policy
	if err := c.do(ctx, "get_policy", http.MethodGet, policyPath(id, ""), nil, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// CreatePolicy submits a new policy and returns the stored record
func (c *Client) CreatePolicy(ctx context.Context, newPolicy models.NewPolicy) (*models.Policy, error) {
	var policy models.Policy
	if err := c.do(ctx, "create_policy", http.MethodPost, "/policies", newPolicy, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// GetImpactAnalysis fetches the impact analysis for a policy
func (c *Client) GetImpactAnalysis(ctx context.Context, id string) (*models.ImpactAnalysis, error) {
	var impact models.ImpactAnalysis
	if err := c.do(ctx, "get_impact_analysis", http.MethodGet, policyPath(id, "/impact"), nil, &impact); err != nil {
		return nil, err
	}
	return &impact, nil
}

// PredictRisk requests a risk assessment for a policy
func (c *Client) PredictRisk(ctx context.Context, id string) (*models.RiskAssessment, error) {
	var risk models.RiskAssessment
	if err := c.do(ctx, "predict_risk", http.MethodPost, policyPath(id, "/predict-risk"), nil, &risk); err != nil {
		return nil, err
	}
	return &risk, nil
}

// GetRecommendations fetches recommendations for a policy
func (c *Client) GetRecommendations(ctx context.Context, id string) ([]models.Recommendation, error) {
	var recommendations []models.Recommendation
	if err := c.do(ctx, "get_recommendations", http.MethodGet, policyPath(id, "/recommendations"), nil, &recommendations); err != nil {
		return nil, err
	}
	return recommendations, nil
}

// GetExecutiveReport fetches the executive report for a policy
func (c *Client) GetExecutiveReport(ctx context.Context, id string) (*models.ExecutiveReport, error) {
	var report models.ExecutiveReport
	if err := c.do(ctx, "get_executive_report", http.MethodGet, policyPath(id, "/report"), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetDashboardMetrics fetches the portfolio summary
func (c *Client) GetDashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	var metrics models.DashboardMetrics
	if err := c.do(ctx, "get_dashboard_metrics", http.MethodGet, "/dashboard/metrics", nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// Health checks the backend health endpoint
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	cause := c.execute(ctx, method, path, body, out)
	c.recorder.ObserveUpstream(operation, time.Since(start), cause)

	if cause != nil {
		c.logger.Debug("Upstream request failed",
			zap.String("operation", operation),
			zap.Error(cause))
		return fmt.Errorf("%s: %w (%v)", operation, ErrRequestFailed, cause)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, apiPrefix+path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("malformed body: %w", err)
		}
	}
	return nil
}

func policyPath(id, suffix string) string {
	return "/policies/" + url.PathEscape(id) + suffix
}

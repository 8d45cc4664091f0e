package metrics

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "policy_dashboard"

// MetricsCollector collects and exports metrics for the dashboard
type MetricsCollector struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	// Request metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	// Upstream metrics
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	// Page metrics
	pageLoadsTotal  *prometheus.CounterVec
	pageLoadSeconds *prometheus.HistogramVec
	reportFailures  prometheus.Counter

	// Live session metrics
	liveSessionsActive prometheus.Gauge
	liveMessagesTotal  *prometheus.CounterVec

	// System metrics
	goroutinesActive prometheus.Gauge
}

// NewMetricsCollector registers every metric on a private registry so
// several collectors can coexist in one process.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,
		logger:   logger,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),

		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of backend API calls",
			},
			[]string{"operation", "outcome"},
		),
		upstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Backend API call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		pageLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_loads_total",
				Help:      "Total number of completed page loads by final status",
			},
			[]string{"page", "status"},
		),
		pageLoadSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_load_duration_seconds",
				Help:      "Page load duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"page"},
		),
		reportFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_failures_total",
				Help:      "Executive report loads that failed and were skipped",
			},
		),

		liveSessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_sessions_active",
				Help:      "Number of open live session connections",
			},
		),
		liveMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "live_messages_total",
				Help:      "Live session messages by direction and type",
			},
			[]string{"direction", "type"},
		),

		goroutinesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines_active",
				Help:      "Number of goroutines sampled periodically",
			},
		),
	}
}

// Handler exposes the collector's registry in the Prometheus text format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry backing the collector
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Request tracking methods

// IncrementRequests increments the HTTP request counter
func (m *MetricsCollector) IncrementRequests(method, route, status string) {
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records HTTP request latency
func (m *MetricsCollector) ObserveRequestDuration(method, route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncRequestsInFlight increments the in-flight request gauge
func (m *MetricsCollector) IncRequestsInFlight() {
	m.requestsInFlight.Inc()
}

// DecRequestsInFlight decrements the in-flight request gauge
func (m *MetricsCollector) DecRequestsInFlight() {
	m.requestsInFlight.Dec()
}

// ObserveUpstream records one backend call. Canceled calls are counted
// separately from failures.
func (m *MetricsCollector) ObserveUpstream(operation string, duration time.Duration, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	default:
		outcome = "failure"
	}
	m.upstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.upstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Page tracking methods

// ObservePageLoad records a finished page load
func (m *MetricsCollector) ObservePageLoad(page, status string, duration time.Duration) {
	m.pageLoadsTotal.WithLabelValues(page, status).Inc()
	m.pageLoadSeconds.WithLabelValues(page).Observe(duration.Seconds())
}

// ReportFailed counts an executive report that could not be loaded
func (m *MetricsCollector) ReportFailed() {
	m.reportFailures.Inc()
}

// Live session tracking methods

// SessionOpened tracks a new live session
func (m *MetricsCollector) SessionOpened() {
	m.liveSessionsActive.Inc()
}

// SessionClosed tracks a closed live session
func (m *MetricsCollector) SessionClosed() {
	m.liveSessionsActive.Dec()
}

// IncrementLiveMessages counts live session messages by direction and type
func (m *MetricsCollector) IncrementLiveMessages(direction, msgType string) {
	m.liveMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// StartPeriodicCollection samples runtime gauges until ctx ends.
func (m *MetricsCollector) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectSystemMetrics()
		}
	}
}

func (m *MetricsCollector) collectSystemMetrics() {
	n := runtime.NumGoroutine()
	m.goroutinesActive.Set(float64(n))
	m.logger.Debug("Collected system metrics", zap.Int("goroutines", n))
}

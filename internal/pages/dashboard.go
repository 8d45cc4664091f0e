package pages

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/policyanalytics/dashboard/internal/components"
	"github.com/policyanalytics/dashboard/internal/models"
	"github.com/policyanalytics/dashboard/internal/visualization"
)

const dashboardErrorMessage = "Failed to load dashboard data"

type dashboardData struct {
	metrics  models.DashboardMetrics
	policies []models.Policy
}

// DashboardView is the rendered content of a ready dashboard.
type DashboardView struct {
	Title         string                    `json:"title"`
	Cards         []components.MetricCard   `json:"cards"`
	StatusChart   visualization.ChartData   `json:"status_chart"`
	CategoryChart visualization.ChartData   `json:"category_chart"`
	Activities    []components.ActivityItem `json:"activities"`
	PolicyCount   int                       `json:"policy_count"`
}

// Dashboard loads the summary metrics and the policy list together.
type Dashboard struct {
	deps Deps

	mu    sync.Mutex
	life  lifecycle
	state State[dashboardData]
}

// NewDashboard creates an unmounted dashboard controller bound to parent
func NewDashboard(parent context.Context, deps Deps) *Dashboard {
	return &Dashboard{
		deps:  deps.withDefaults(),
		life:  newLifecycle(parent),
		state: Loading[dashboardData](),
	}
}

// Mount performs the single load of the dashboard. Later calls return the
// resident state without touching the network.
func (d *Dashboard) Mount() State[DashboardView] {
	d.mu.Lock()
	if !d.life.alive || d.life.started() {
		defer d.mu.Unlock()
		return d.viewLocked()
	}
	ctx, cancel, gen := d.life.begin()
	d.mu.Unlock()
	defer cancel()

	start := time.Now()
	var (
		metrics  *models.DashboardMetrics
		policies []models.Policy
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := d.deps.API.GetDashboardMetrics(gctx)
		metrics = m
		return err
	})
	g.Go(func() error {
		p, err := d.deps.API.ListPolicies(gctx)
		policies = p
		return err
	})
	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.life.current(gen) {
		d.deps.Logger.Debug("Discarding dashboard load after unmount")
		return d.viewLocked()
	}

	if err != nil {
		d.deps.Logger.Error("Failed to load dashboard", zap.Error(err))
		d.state = Failed[dashboardData](dashboardErrorMessage)
	} else {
		d.state = Ready(&dashboardData{metrics: *metrics, policies: policies})
	}
	d.deps.Recorder.ObservePageLoad(PageDashboard, string(d.state.Status), time.Since(start))

	return d.viewLocked()
}

// State returns the current dashboard state
func (d *Dashboard) State() State[DashboardView] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// Unmount ends the controller's lifetime. Loads still in flight are
// canceled and their results dropped.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.life.end()
}

func (d *Dashboard) viewLocked() State[DashboardView] {
	return mapState(d.state, func(data *dashboardData) *DashboardView {
		m := data.metrics
		return &DashboardView{
			Title:         "Policy Analytics Dashboard",
			Cards:         components.DashboardCards(m),
			StatusChart:   visualization.PolicyChart(m.PoliciesByStatus, visualization.ChartDoughnut),
			CategoryChart: visualization.PolicyChart(m.PoliciesByCategory, visualization.ChartBar),
			Activities:    components.RecentActivities(m.RecentActivities),
			PolicyCount:   len(data.policies),
		}
	})
}

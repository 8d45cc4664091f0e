package pages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/policyanalytics/dashboard/internal/components"
	"github.com/policyanalytics/dashboard/internal/models"
	"github.com/policyanalytics/dashboard/internal/visualization"
)

const policyDetailErrorMessage = "Failed to load policy data"

// Tab is one section of the policy detail page.
type Tab string

const (
	TabOverview        Tab = "overview"
	TabImpact          Tab = "impact"
	TabRisk            Tab = "risk"
	TabRecommendations Tab = "recommendations"
	TabReport          Tab = "report"
)

var tabs = []struct {
	value Tab
	label string
}{
	{TabOverview, "Overview"},
	{TabImpact, "Impact Analysis"},
	{TabRisk, "Risk Assessment"},
	{TabRecommendations, "Recommendations"},
	{TabReport, "Executive Report"},
}

// ParseTab parses a tab name. An empty name selects TabOverview.
func ParseTab(s string) (Tab, error) {
	if s == "" {
		return TabOverview, nil
	}
	for _, t := range tabs {
		if string(t.value) == s {
			return t.value, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

type TabOption struct {
	Value  Tab    `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type policyDetailData struct {
	policy          models.Policy
	impact          models.ImpactAnalysis
	risk            models.RiskAssessment
	recommendations []models.Recommendation
	report          *models.ExecutiveReport
}

// PolicyDetailView is the rendered content of a ready policy detail page.
// Report is nil when the report could not be loaded.
type PolicyDetailView struct {
	ID              string                          `json:"id"`
	ActiveTab       Tab                             `json:"active_tab"`
	Tabs            []TabOption                     `json:"tabs"`
	Policy          models.Policy                   `json:"policy"`
	Overview        components.PolicyOverview       `json:"overview"`
	Impact          components.ImpactSummary        `json:"impact"`
	ImpactCharts    visualization.ImpactCharts      `json:"impact_charts"`
	Risk            components.RiskSummary          `json:"risk"`
	Recommendations []components.RecommendationItem `json:"recommendations"`
	Report          *components.ReportView          `json:"report,omitempty"`
}

// PolicyDetail loads everything known about one policy. Four calls are
// mandatory and run concurrently; the executive report follows them and is
// best-effort.
type PolicyDetail struct {
	deps Deps

	mu     sync.Mutex
	life   lifecycle
	id     string
	tab    Tab
	state  State[policyDetailData]
	loaded bool
}

// NewPolicyDetail creates a policy detail controller bound to parent
func NewPolicyDetail(parent context.Context, deps Deps) *PolicyDetail {
	return &PolicyDetail{
		deps:  deps.withDefaults(),
		life:  newLifecycle(parent),
		tab:   TabOverview,
		state: Loading[policyDetailData](),
	}
}

// Load shows the policy with the given id. The load sequence only runs when
// the id differs from the resident one; otherwise the current state is
// returned as is. A load superseded by a newer id, or finishing after
// Unmount, leaves the state untouched.
func (p *PolicyDetail) Load(id string) State[PolicyDetailView] {
	p.mu.Lock()
	if !p.life.alive || (p.loaded && p.id == id) {
		defer p.mu.Unlock()
		return p.viewLocked()
	}
	ctx, cancel, gen := p.life.begin()
	p.id = id
	p.loaded = true
	p.state = Loading[policyDetailData]()
	p.mu.Unlock()
	defer cancel()

	start := time.Now()
	logger := p.deps.Logger.With(zap.String("policy_id", id))

	var data policyDetailData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		policy, err := p.deps.API.GetPolicy(gctx, id)
		if err == nil {
			data.policy = *policy
		}
		return err
	})
	g.Go(func() error {
		impact, err := p.deps.API.GetImpactAnalysis(gctx, id)
		if err == nil {
			data.impact = *impact
		}
		return err
	})
	g.Go(func() error {
		risk, err := p.deps.API.PredictRisk(gctx, id)
		if err == nil {
			data.risk = *risk
		}
		return err
	})
	g.Go(func() error {
		recommendations, err := p.deps.API.GetRecommendations(gctx, id)
		data.recommendations = recommendations
		return err
	})

	if err := g.Wait(); err != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.life.current(gen) {
			logger.Debug("Discarding stale policy load")
			return p.viewLocked()
		}
		logger.Error("Failed to load policy", zap.Error(err))
		p.state = Failed[policyDetailData](policyDetailErrorMessage)
		p.deps.Recorder.ObservePageLoad(PagePolicyDetail, string(StatusError), time.Since(start))
		return p.viewLocked()
	}

	p.mu.Lock()
	stale := !p.life.current(gen)
	p.mu.Unlock()
	if stale {
		logger.Debug("Discarding stale policy load")
		return p.State()
	}

	report, reportErr := p.deps.API.GetExecutiveReport(ctx, id)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.life.current(gen) {
		logger.Debug("Discarding stale policy load")
		return p.viewLocked()
	}

	if reportErr != nil {
		logger.Warn("Failed to load executive report", zap.Error(reportErr))
		p.deps.Recorder.ReportFailed()
	} else {
		data.report = report
	}

	p.state = Ready(&data)
	p.deps.Recorder.ObservePageLoad(PagePolicyDetail, string(StatusReady), time.Since(start))
	return p.viewLocked()
}

// SelectTab switches the visible section without any network activity.
// Selecting the report tab while no report is present renders nothing.
func (p *PolicyDetail) SelectTab(tab Tab) State[PolicyDetailView] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tab = tab
	return p.viewLocked()
}

// ActiveTab returns the selected tab
func (p *PolicyDetail) ActiveTab() Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tab
}

// ID returns the id of the most recent load
func (p *PolicyDetail) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// State returns the current policy detail state
func (p *PolicyDetail) State() State[PolicyDetailView] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Unmount cancels any load in flight and drops its result
func (p *PolicyDetail) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.life.end()
}

func (p *PolicyDetail) viewLocked() State[PolicyDetailView] {
	id, active := p.id, p.tab
	return mapState(p.state, func(data *policyDetailData) *PolicyDetailView {
		view := &PolicyDetailView{
			ID:              id,
			ActiveTab:       active,
			Policy:          data.policy,
			Overview:        components.NewPolicyOverview(data.policy),
			Impact:          components.NewImpactSummary(data.impact),
			ImpactCharts:    visualization.ImpactChart(data.impact.MetricsComparison, data.impact.TrendData),
			Risk:            components.RiskFactors(data.risk),
			Recommendations: components.RecommendationsList(data.recommendations),
		}
		for _, t := range tabs {
			view.Tabs = append(view.Tabs, TabOption{Value: t.value, Label: t.label, Active: t.value == active})
		}
		if data.report != nil {
			report := components.ExecutiveReportView(*data.report)
			view.Report = &report
		}
		return view
	})
}

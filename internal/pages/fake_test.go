package pages

import (
	"context"
	"sync"
	"time"

	"github.com/policyanalytics/dashboard/internal/client"
	"github.com/policyanalytics/dashboard/internal/models"
)

// fakeAPI serves canned data. Any method named in fail returns
// ErrRequestFailed. A gate registered for an id blocks calls for that id
// until it is closed or, unless ignoreCancel is set, the context ends.
type fakeAPI struct {
	mu           sync.Mutex
	calls        map[string]int
	fail         map[string]bool
	gates        map[string]chan struct{}
	ignoreCancel bool

	policies []models.Policy
}

var _ client.API = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: map[string]int{},
		fail:  map[string]bool{},
		gates: map[string]chan struct{}{},
		policies: []models.Policy{
			{ID: 1, Name: "Clean Air", Status: models.PolicyStatusActive, Budget: 250_000},
			{ID: 2, Name: "School Meals", Status: models.PolicyStatusDraft, Budget: 100_000},
			{ID: 3, Name: "Old Roads", Status: models.PolicyStatusArchived, Budget: 50_000},
		},
	}
}

func (f *fakeAPI) enter(ctx context.Context, op, id string) error {
	f.mu.Lock()
	f.calls[op]++
	failing := f.fail[op]
	gate := f.gates[id]
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	if gate != nil {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return client.ErrRequestFailed
			}
		}
	}
	if failing {
		return client.ErrRequestFailed
	}
	return nil
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) setFail(op string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = fail
}

func (f *fakeAPI) setGate(id string, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[id] = gate
}

func (f *fakeAPI) ListPolicies(ctx context.Context) ([]models.Policy, error) {
	if err := f.enter(ctx, "list_policies", ""); err != nil {
		return nil, err
	}
	out := make([]models.Policy, len(f.policies))
	copy(out, f.policies)
	return out, nil
}

func (f *fakeAPI) GetPolicy(ctx context.Context, id string) (*models.Policy, error) {
	if err := f.enter(ctx, "get_policy", id); err != nil {
		return nil, err
	}
	return &models.Policy{Name: "Policy " + id, Status: models.PolicyStatusActive}, nil
}

func (f *fakeAPI) CreatePolicy(ctx context.Context, p models.NewPolicy) (*models.Policy, error) {
	if err := f.enter(ctx, "create_policy", ""); err != nil {
		return nil, err
	}
	return &models.Policy{ID: 99, Name: p.Name, Status: models.PolicyStatusDraft}, nil
}

func (f *fakeAPI) GetImpactAnalysis(ctx context.Context, id string) (*models.ImpactAnalysis, error) {
	if err := f.enter(ctx, "get_impact_analysis", id); err != nil {
		return nil, err
	}
	return &models.ImpactAnalysis{OverallImpactScore: 72, ROI: 12.5, KeyInsights: []string{"Insight for " + id}}, nil
}

func (f *fakeAPI) PredictRisk(ctx context.Context, id string) (*models.RiskAssessment, error) {
	if err := f.enter(ctx, "predict_risk", id); err != nil {
		return nil, err
	}
	return &models.RiskAssessment{OverallRiskLevel: models.RiskLevelHigh, RiskScore: 72, Confidence: 0.81}, nil
}

func (f *fakeAPI) GetRecommendations(ctx context.Context, id string) ([]models.Recommendation, error) {
	if err := f.enter(ctx, "get_recommendations", id); err != nil {
		return nil, err
	}
	return []models.Recommendation{{Title: "Rec for " + id, Priority: models.PriorityHigh}}, nil
}

func (f *fakeAPI) GetExecutiveReport(ctx context.Context, id string) (*models.ExecutiveReport, error) {
	if err := f.enter(ctx, "get_executive_report", id); err != nil {
		return nil, err
	}
	return &models.ExecutiveReport{PolicyName: "Policy " + id, ExecutiveSummary: "Summary"}, nil
}

func (f *fakeAPI) GetDashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	if err := f.enter(ctx, "get_dashboard_metrics", ""); err != nil {
		return nil, err
	}
	return &models.DashboardMetrics{
		TotalPolicies: 3,
		TotalBudget:   2_500_000,
		PoliciesByStatus: models.NewOrderedMap(
			models.Entry[int]{Key: "active", Value: 1},
			models.Entry[int]{Key: "draft", Value: 1},
		),
		RecentActivities: []models.Activity{{PolicyID: 1, PolicyName: "Clean Air", Action: "created"}},
	}, nil
}

func (f *fakeAPI) Health(ctx context.Context) (*client.HealthStatus, error) {
	if err := f.enter(ctx, "health", ""); err != nil {
		return nil, err
	}
	return &client.HealthStatus{Status: "healthy"}, nil
}

type pageLoad struct {
	page   string
	status string
}

type fakeRecorder struct {
	mu             sync.Mutex
	loads          []pageLoad
	reportFailures int
}

func (r *fakeRecorder) ObservePageLoad(page, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, pageLoad{page: page, status: status})
}

func (r *fakeRecorder) ReportFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reportFailures++
}

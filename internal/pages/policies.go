package pages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/policyanalytics/dashboard/internal/components"
	"github.com/policyanalytics/dashboard/internal/models"
)

const (
	policiesErrorMessage = "Failed to load policies"
	emptyFilterMessage   = "No policies found with the selected filter."
)

// Filter restricts the visible policies by status. Archived policies are
// only reachable through FilterAll.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterDraft     Filter = "draft"
)

var filters = []struct {
	value Filter
	label string
}{
	{FilterAll, "All"},
	{FilterActive, "Active"},
	{FilterCompleted, "Completed"},
	{FilterDraft, "Draft"},
}

// ParseFilter parses a filter name. An empty name selects FilterAll.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range filters {
		if string(f.value) == s {
			return f.value, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Matches reports whether p is visible under f
func (f Filter) Matches(p models.Policy) bool {
	return f == FilterAll || models.PolicyStatus(f) == p.Status
}

// FilterPolicies returns the policies visible under f, in backend
// order.
func FilterPolicies(policies []models.Policy, f Filter) []models.Policy {
	visible := make([]models.Policy, 0, len(policies))
	for _, p := range policies {
		if f.Matches(p) {
			visible = append(visible, p)
		}
	}
	return visible
}

type FilterOption struct {
	Value  Filter `json:"value"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// FilterPanel is the visible content under one filter.
type FilterPanel struct {
	Filter       Filter                  `json:"filter"`
	Active       bool                    `json:"active"`
	Policies     []components.PolicyCard `json:"policies"`
	Empty        bool                    `json:"empty"`
	EmptyMessage string                  `json:"empty_message,omitempty"`
}

type PoliciesView struct {
	Filter  FilterOption   `json:"-"`
	Filters []FilterOption `json:"filters"`
	Visible FilterPanel    `json:"visible"`
	Panels  []FilterPanel  `json:"-"`
}

// Policies lists every policy with a local status filter.
type Policies struct {
	deps Deps

	mu       sync.Mutex
	life     lifecycle
	state    State[[]models.Policy]
	selected Filter
}

// NewPolicies creates an unmounted policies controller bound to parent
func NewPolicies(parent context.Context, deps Deps) *Policies {
	return &Policies{
		deps:     deps.withDefaults(),
		life:     newLifecycle(parent),
		state:    Loading[[]models.Policy](),
		selected: FilterAll,
	}
}

// Mount fetches the policy list once.
func (p *Policies) Mount() State[PoliciesView] {
	p.mu.Lock()
	if !p.life.alive || p.life.started() {
		defer p.mu.Unlock()
		return p.viewLocked()
	}
	ctx, cancel, gen := p.life.begin()
	p.mu.Unlock()
	defer cancel()

	start := time.Now()
	policies, err := p.deps.API.ListPolicies(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.life.current(gen) {
		p.deps.Logger.Debug("Discarding policies load after unmount")
		return p.viewLocked()
	}

	if err != nil {
		p.deps.Logger.Error("Failed to load policies", zap.Error(err))
		p.state = Failed[[]models.Policy](policiesErrorMessage)
	} else {
		p.state = Ready(&policies)
	}
	p.deps.Recorder.ObservePageLoad(PagePolicies, string(p.state.Status), time.Since(start))

	return p.viewLocked()
}

// SelectFilter changes the visible subset. It never fetches.
func (p *Policies) SelectFilter(f Filter) State[PoliciesView] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = f
	return p.viewLocked()
}

// Filter returns the selected filter
func (p *Policies) Filter() Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// Visible returns the fetched policies passing the current filter, or nil
// while the list is not ready.
func (p *Policies) Visible() []models.Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Status != StatusReady {
		return nil
	}
	return FilterPolicies(*p.state.Data, p.selected)
}

// State returns the current policies state
func (p *Policies) State() State[PoliciesView] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Unmount cancels any load in flight and drops its result
func (p *Policies) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.life.end()
}

func (p *Policies) viewLocked() State[PoliciesView] {
	selected := p.selected
	return mapState(p.state, func(all *[]models.Policy) *PoliciesView {
		view := &PoliciesView{}
		for _, f := range filters {
			option := FilterOption{Value: f.value, Label: f.label, Active: f.value == selected}
			view.Filters = append(view.Filters, option)

			panel := newFilterPanel(*all, f.value)
			panel.Active = option.Active
			view.Panels = append(view.Panels, panel)

			if option.Active {
				view.Filter = option
				view.Visible = panel
			}
		}
		return view
	})
}

func newFilterPanel(all []models.Policy, f Filter) FilterPanel {
	visible := FilterPolicies(all, f)
	panel := FilterPanel{
		Filter:   f,
		Policies: make([]components.PolicyCard, 0, len(visible)),
		Empty:    len(visible) == 0,
	}
	for _, policy := range visible {
		panel.Policies = append(panel.Policies, components.NewPolicyCard(policy))
	}
	if panel.Empty {
		panel.EmptyMessage = emptyFilterMessage
	}
	return panel
}

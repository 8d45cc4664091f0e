package components

import (
	"fmt"
	"strconv"

	"github.com/policyanalytics/dashboard/internal/models"
)

const reportPreviewCount = 3

// MetricCard is a single summary tile.
type MetricCard struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// DashboardCards builds the five summary tiles shown at the top of the
// dashboard.
func DashboardCards(m models.DashboardMetrics) []MetricCard {
	return []MetricCard{
		{Title: "Total Policies", Value: strconv.Itoa(m.TotalPolicies), Icon: "📋", Color: "#3b82f6"},
		{Title: "Active Policies", Value: strconv.Itoa(m.ActivePolicies), Icon: "✅", Color: "#10b981"},
		{Title: "Total Budget", Value: FormatMillions(m.TotalBudget), Icon: "💰", Color: "#f59e0b"},
		{Title: "Average ROI", Value: FormatPercent(m.AverageROI), Icon: "📈", Color: "#8b5cf6"},
		{Title: "High Risk Policies", Value: strconv.Itoa(m.HighRiskPolicies), Icon: "⚠️", Color: "#ef4444"},
	}
}

type ActivityItem struct {
	PolicyName string `json:"policy_name"`
	Action     string `json:"action"`
	Date       string `json:"date"`
	Href       string `json:"href"`
	Icon       string `json:"icon"`
}

// RecentActivities builds the activity feed items
func RecentActivities(activities []models.Activity) []ActivityItem {
	items := make([]ActivityItem, 0, len(activities))
	for _, a := range activities {
		items = append(items, ActivityItem{
			PolicyName: a.PolicyName,
			Action:     a.Action,
			Date:       FormatActivityDate(a.Timestamp.Time),
			Href:       PolicyHref(a.PolicyID),
			Icon:       fallbackIcon,
		})
	}
	return items
}

// PolicyHref returns the detail page link for a policy
func PolicyHref(id int) string {
	return fmt.Sprintf("/policies/%d", id)
}

type NavLink struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Active bool   `json:"active"`
}

type Navbar struct {
	Brand     string    `json:"brand"`
	BrandHref string    `json:"brand_href"`
	Links     []NavLink `json:"links"`
}

// NewNavbar returns the static navigation bar with the link for the current
// section marked active.
func NewNavbar(section string) Navbar {
	links := []NavLink{
		{Label: "Dashboard", Href: "/"},
		{Label: "Policies", Href: "/policies"},
	}
	for i := range links {
		links[i].Active = links[i].Href == section
	}
	return Navbar{Brand: "📊 Policy Analytics Platform", BrandHref: "/", Links: links}
}

type PolicyCard struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	StatusColor string `json:"status_color"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Budget      string `json:"budget"`
	StartDate   string `json:"start_date"`
	Href        string `json:"href"`
}

// NewPolicyCard builds a list card for a policy
func NewPolicyCard(p models.Policy) PolicyCard {
	return PolicyCard{
		ID:          p.ID,
		Name:        p.Name,
		Status:      string(p.Status),
		StatusColor: StatusColor(p.Status),
		Description: p.Description,
		Category:    p.Category,
		Budget:      FormatThousands(p.Budget),
		StartDate:   FormatDate(p.StartDate.Time),
		Href:        PolicyHref(p.ID),
	}
}

// PolicyOverview is the policy information block of the overview tab.
type PolicyOverview struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	StatusColor string `json:"status_color"`
	Description string `json:"description"`
	Budget      string `json:"budget"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
}

// NewPolicyOverview builds the overview tab for a policy
func NewPolicyOverview(p models.Policy) PolicyOverview {
	overview := PolicyOverview{
		Name:        p.Name,
		Category:    p.Category,
		Status:      string(p.Status),
		StatusColor: StatusColor(p.Status),
		Description: p.Description,
		Budget:      FormatCurrency(p.Budget),
		StartDate:   FormatDate(p.StartDate.Time),
	}
	if p.EndDate != nil {
		overview.EndDate = FormatDate(p.EndDate.Time)
	}
	return overview
}

type ImpactSummary struct {
	Score       string   `json:"score"`
	ROI         string   `json:"roi"`
	Insights    []string `json:"insights"`
	MetricCount int      `json:"metric_count"`
}

// NewImpactSummary builds the headline figures of the impact tab
func NewImpactSummary(impact models.ImpactAnalysis) ImpactSummary {
	return ImpactSummary{
		Score:       FormatScore(impact.OverallImpactScore),
		ROI:         FormatPercent(impact.ROI),
		Insights:    impact.KeyInsights,
		MetricCount: len(impact.MetricsComparison),
	}
}

type RiskFactorItem struct {
	Name        string `json:"name"`
	Score       string `json:"score"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation,omitempty"`
}

type RiskSummary struct {
	Level       string           `json:"level"`
	LevelColor  string           `json:"level_color"`
	LevelClass  string           `json:"level_class"`
	Score       string           `json:"score"`
	Confidence  string           `json:"confidence"`
	FactorCount int              `json:"factor_count"`
	Factors     []RiskFactorItem `json:"factors"`
}

// RiskFactors summarizes an assessment. Level and score are shown as
// delivered, never reconciled with each other.
func RiskFactors(risk models.RiskAssessment) RiskSummary {
	factors := make([]RiskFactorItem, 0, len(risk.RiskFactors))
	for _, f := range risk.RiskFactors {
		factors = append(factors, RiskFactorItem{
			Name:        f.FactorName,
			Score:       FormatScore(f.RiskScore),
			Color:       RiskScoreColor(f.RiskScore),
			Description: f.Description,
			Mitigation:  f.MitigationStrategy,
		})
	}

	return RiskSummary{
		Level:       UpperLevel(risk.OverallRiskLevel),
		LevelColor:  RiskLevelColor(risk.OverallRiskLevel),
		LevelClass:  "risk-" + string(risk.OverallRiskLevel),
		Score:       FormatScore(risk.RiskScore),
		Confidence:  FormatConfidence(risk.Confidence),
		FactorCount: len(risk.RiskFactors),
		Factors:     factors,
	}
}

type RecommendationItem struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Icon                 string `json:"icon"`
	Priority             string `json:"priority"`
	PriorityColor        string `json:"priority_color"`
	ExpectedImpact       string `json:"expected_impact"`
	ImplementationEffort string `json:"implementation_effort"`
}

// RecommendationsList renders the full list. Descriptions are never cut.
func RecommendationsList(recommendations []models.Recommendation) []RecommendationItem {
	items := make([]RecommendationItem, 0, len(recommendations))
	for _, r := range recommendations {
		items = append(items, RecommendationItem{
			Title:                r.Title,
			Description:          r.Description,
			Icon:                 CategoryIcon(r.Category),
			Priority:             UpperLevel(r.Priority),
			PriorityColor:        PriorityColor(r.Priority),
			ExpectedImpact:       r.ExpectedImpact,
			ImplementationEffort: r.ImplementationEffort,
		})
	}
	return items
}

type KeyMetric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type RecommendationPreview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ReportView struct {
	PolicyName          string                  `json:"policy_name,omitempty"`
	GeneratedAt         string                  `json:"generated_at"`
	ExecutiveSummary    string                  `json:"executive_summary"`
	KeyMetrics          []KeyMetric             `json:"key_metrics"`
	Impact              ImpactSummary           `json:"impact"`
	Risk                RiskSummary             `json:"risk"`
	RecommendationCount int                     `json:"recommendation_count"`
	Previews            []RecommendationPreview `json:"previews"`
}

// ExecutiveReportView flattens a report for display. Key metrics keep the
// backend's order and only the first three recommendations are previewed.
func ExecutiveReportView(report models.ExecutiveReport) ReportView {
	metrics := make([]KeyMetric, 0, report.KeyMetrics.Len())
	for _, e := range report.KeyMetrics.Entries() {
		metrics = append(metrics, KeyMetric{Label: Humanize(e.Key), Value: FormatKeyMetric(e.Value)})
	}

	n := len(report.Recommendations)
	if n > reportPreviewCount {
		n = reportPreviewCount
	}
	previews := make([]RecommendationPreview, 0, n)
	for _, r := range report.Recommendations[:n] {
		previews = append(previews, RecommendationPreview{
			Title:       r.Title,
			Description: Truncate(r.Description, previewLength),
		})
	}

	return ReportView{
		PolicyName:          report.PolicyName,
		GeneratedAt:         FormatReportTime(report.GeneratedAt.Time),
		ExecutiveSummary:    report.ExecutiveSummary,
		KeyMetrics:          metrics,
		Impact:              NewImpactSummary(report.ImpactAnalysis),
		Risk:                RiskFactors(report.RiskAssessment),
		RecommendationCount: len(report.Recommendations),
		Previews:            previews,
	}
}

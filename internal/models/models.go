package models

// Policy Models
type Policy struct {
	ID            int                `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	Status        PolicyStatus       `json:"status"`
	Budget        float64            `json:"budget"`
	StartDate     Timestamp          `json:"start_date"`
	EndDate       *Timestamp         `json:"end_date,omitempty"`
	TargetMetrics map[string]float64 `json:"target_metrics,omitempty"`
	CreatedAt     *Timestamp         `json:"created_at,omitempty"`
	UpdatedAt     *Timestamp         `json:"updated_at,omitempty"`
}

type PolicyStatus string

const (
	PolicyStatusDraft     PolicyStatus = "draft"
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusCompleted PolicyStatus = "completed"
	PolicyStatusArchived  PolicyStatus = "archived"
)

// Dashboard Models
type DashboardMetrics struct {
	TotalPolicies      int             `json:"total_policies"`
	ActivePolicies     int             `json:"active_policies"`
	TotalBudget        float64         `json:"total_budget"`
	AverageROI         float64         `json:"average_roi"`
	HighRiskPolicies   int             `json:"high_risk_policies"`
	PoliciesByStatus   OrderedMap[int] `json:"policies_by_status"`
	PoliciesByCategory OrderedMap[int] `json:"policies_by_category"`
	RecentActivities   []Activity      `json:"recent_activities"`
}

type Activity struct {
	PolicyID   int       `json:"policy_id"`
	PolicyName string    `json:"policy_name"`
	Action     string    `json:"action"`
	Timestamp  Timestamp `json:"timestamp"`
}

// Impact Models
type ImpactAnalysis struct {
	PolicyID           int                   `json:"policy_id,omitempty"`
	OverallImpactScore float64               `json:"overall_impact_score"`
	ROI                float64               `json:"roi"`
	MetricsComparison  []MetricComparison    `json:"metrics_comparison"`
	TrendData          OrderedMap[[]float64] `json:"trend_data"`
	KeyInsights        []string              `json:"key_insights"`
	GeneratedAt        *Timestamp            `json:"generated_at,omitempty"`
}

type MetricComparison struct {
	MetricName       string  `json:"metric_name"`
	BeforeValue      float64 `json:"before_value"`
	AfterValue       float64 `json:"after_value"`
	ChangePercentage float64 `json:"change_percentage,omitempty"`
	ChangeAbsolute   float64 `json:"change_absolute,omitempty"`
}

// Risk Models
type RiskAssessment struct {
	PolicyID         int          `json:"policy_id,omitempty"`
	OverallRiskLevel RiskLevel    `json:"overall_risk_level"`
	RiskScore        float64      `json:"risk_score"`
	Confidence       float64      `json:"confidence"`
	RiskFactors      []RiskFactor `json:"risk_factors"`
	PredictedAt      *Timestamp   `json:"predicted_at,omitempty"`
}

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

type RiskFactor struct {
	FactorName         string  `json:"factor_name"`
	RiskScore          float64 `json:"risk_score"`
	Description        string  `json:"description"`
	MitigationStrategy string  `json:"mitigation_strategy,omitempty"`
}

// Recommendation Models
type Recommendation struct {
	Title                string                 `json:"title"`
	Description          string                 `json:"description"`
	Category             RecommendationCategory `json:"category"`
	Priority             Priority               `json:"priority"`
	ExpectedImpact       string                 `json:"expected_impact"`
	ImplementationEffort string                 `json:"implementation_effort"`
}

type RecommendationCategory string

const (
	CategoryBudget         RecommendationCategory = "budget"
	CategoryTimeline       RecommendationCategory = "timeline"
	CategoryStrategy       RecommendationCategory = "strategy"
	CategoryRiskMitigation RecommendationCategory = "risk_mitigation"
	CategoryOther          RecommendationCategory = "other"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Report Models
type ExecutiveReport struct {
	PolicyID         int              `json:"policy_id,omitempty"`
	PolicyName       string           `json:"policy_name,omitempty"`
	GeneratedAt      Timestamp        `json:"generated_at"`
	ExecutiveSummary string           `json:"executive_summary"`
	KeyMetrics       OrderedMap[any]  `json:"key_metrics"`
	ImpactAnalysis   ImpactAnalysis   `json:"impact_analysis"`
	RiskAssessment   RiskAssessment   `json:"risk_assessment"`
	Recommendations  []Recommendation `json:"recommendations"`
}

package components

import "github.com/policyanalytics/dashboard/internal/models"

// FallbackColor is used for any key missing from a color table.
const FallbackColor = "#6b7280"

const fallbackIcon = "📋"

var statusColors = map[models.PolicyStatus]string{
	models.PolicyStatusDraft:     "#6b7280",
	models.PolicyStatusActive:    "#10b981",
	models.PolicyStatusCompleted: "#3b82f6",
	models.PolicyStatusArchived:  "#9ca3af",
}

var priorityColors = map[models.Priority]string{
	models.PriorityHigh:   "#ef4444",
	models.PriorityMedium: "#f59e0b",
	models.PriorityLow:    "#10b981",
}

var riskLevelColors = map[models.RiskLevel]string{
	models.RiskLevelLow:      "#10b981",
	models.RiskLevelMedium:   "#f59e0b",
	models.RiskLevelHigh:     "#ef4444",
	models.RiskLevelCritical: "#991b1b",
}

var categoryIcons = map[models.RecommendationCategory]string{
	models.CategoryBudget:         "💰",
	models.CategoryTimeline:       "⏰",
	models.CategoryStrategy:       "🎯",
	models.CategoryRiskMitigation: "🛡️",
}

func lookup[K comparable](table map[K]string, key K, fallback string) string {
	if v, ok := table[key]; ok {
		return v
	}
	return fallback
}

// StatusColor returns the badge color for a policy status
func StatusColor(status models.PolicyStatus) string {
	return lookup(statusColors, status, FallbackColor)
}

// PriorityColor returns the badge color for a recommendation priority
func PriorityColor(priority models.Priority) string {
	return lookup(priorityColors, priority, FallbackColor)
}

// RiskLevelColor returns the badge color for an overall risk level
func RiskLevelColor(level models.RiskLevel) string {
	return lookup(riskLevelColors, level, FallbackColor)
}

// CategoryIcon returns the icon shown next to a recommendation category
func CategoryIcon(category models.RecommendationCategory) string {
	return lookup(categoryIcons, category, fallbackIcon)
}

// RiskScoreColor grades a single risk factor score.
func RiskScoreColor(score float64) string {
	switch {
	case score >= 70:
		return "#ef4444"
	case score >= 50:
		return "#f59e0b"
	default:
		return "#10b981"
	}
}

package visualization

import (
	"encoding/json"
	"fmt"

	"github.com/policyanalytics/dashboard/internal/components"
	"github.com/policyanalytics/dashboard/internal/models"
)

// ChartType names the Chart.js chart kind the data is shaped for.
type ChartType string

const (
	ChartDoughnut ChartType = "doughnut"
	ChartBar      ChartType = "bar"
	ChartLine     ChartType = "line"
)

const trendMonths = 12

var policyPalette = Colors{
	"#667eea", "#764ba2", "#f093fb", "#4facfe",
	"#00f2fe", "#43e97b", "#fa709a", "#fee140",
}

var (
	trendBorders = []string{
		"rgb(102, 126, 234)",
		"rgb(118, 75, 162)",
		"rgb(240, 147, 251)",
		"rgb(79, 172, 254)",
	}
	trendBackgrounds = []string{
		"rgba(102, 126, 234, 0.1)",
		"rgba(118, 75, 162, 0.1)",
		"rgba(240, 147, 251, 0.1)",
		"rgba(79, 172, 254, 0.1)",
	}
)

// ChartData represents chart visualization data
type ChartData struct {
	Type     ChartType    `json:"type"`
	Labels   []string     `json:"labels"`
	Datasets []Dataset    `json:"datasets"`
	Options  ChartOptions `json:"options"`
}

// Dataset represents a data series
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor Colors    `json:"backgroundColor,omitempty"`
	BorderColor     Colors    `json:"borderColor,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
}

// ChartOptions carries the few display options the dashboard sets.
type ChartOptions struct {
	Title          string `json:"title,omitempty"`
	LegendPosition string `json:"legendPosition"`
	BeginAtZero    bool   `json:"beginAtZero,omitempty"`
}

// Colors is a single color or a per-point palette. A single color
// marshals as a plain string.
type Colors []string

func (c Colors) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

// ImpactCharts holds the comparison chart and, when trend data exists,
// the trend chart.
type ImpactCharts struct {
	Comparison ChartData  `json:"comparison"`
	Trend      *ChartData `json:"trend,omitempty"`
}

// PolicyChart shapes a count mapping for a doughnut or bar chart. Labels
// follow the mapping's order.
func PolicyChart(counts models.OrderedMap[int], kind ChartType) ChartData {
	labels := make([]string, 0, counts.Len())
	values := make([]float64, 0, counts.Len())
	for _, e := range counts.Entries() {
		labels = append(labels, components.Humanize(e.Key))
		values = append(values, float64(e.Value))
	}

	return ChartData{
		Type:   kind,
		Labels: labels,
		Datasets: []Dataset{{
			Label:           "Count",
			Data:            values,
			BackgroundColor: policyPalette,
			BorderColor:     Colors{"#fff"},
			BorderWidth:     2,
		}},
		Options: ChartOptions{LegendPosition: "bottom"},
	}
}

// ImpactChart builds the before/after comparison and the monthly trend.
func ImpactChart(metrics []models.MetricComparison, trend models.OrderedMap[[]float64]) ImpactCharts {
	labels := make([]string, 0, len(metrics))
	before := make([]float64, 0, len(metrics))
	after := make([]float64, 0, len(metrics))
	for _, m := range metrics {
		labels = append(labels, components.Humanize(m.MetricName))
		before = append(before, m.BeforeValue)
		after = append(after, m.AfterValue)
	}

	charts := ImpactCharts{
		Comparison: ChartData{
			Type:   ChartBar,
			Labels: labels,
			Datasets: []Dataset{
				{
					Label:           "Before",
					Data:            before,
					BackgroundColor: Colors{"rgba(239, 68, 68, 0.5)"},
					BorderColor:     Colors{"rgb(239, 68, 68)"},
					BorderWidth:     2,
				},
				{
					Label:           "After",
					Data:            after,
					BackgroundColor: Colors{"rgba(16, 185, 129, 0.5)"},
					BorderColor:     Colors{"rgb(16, 185, 129)"},
					BorderWidth:     2,
				},
			},
			Options: ChartOptions{Title: "Before vs After Comparison", LegendPosition: "top", BeginAtZero: true},
		},
	}

	if trend.Len() == 0 {
		return charts
	}

	months := make([]string, trendMonths)
	for i := range months {
		months[i] = fmt.Sprintf("Month %d", i+1)
	}

	datasets := make([]Dataset, 0, trend.Len())
	for idx, e := range trend.Entries() {
		datasets = append(datasets, Dataset{
			Label:           components.Humanize(e.Key),
			Data:            e.Value,
			BorderColor:     Colors{trendBorders[idx%len(trendBorders)]},
			BackgroundColor: Colors{trendBackgrounds[idx%len(trendBackgrounds)]},
			Tension:         0.4,
		})
	}

	charts.Trend = &ChartData{
		Type:     ChartLine,
		Labels:   months,
		Datasets: datasets,
		Options:  ChartOptions{Title: "Trend Over Time", LegendPosition: "top", BeginAtZero: true},
	}
	return charts
}

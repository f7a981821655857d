// Package charts builds the display specifications shown beside a prediction.
package charts

import (
	"fmt"

	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/stats"
)

// DefaultThreshold separates medium from high risk; half of it separates low from medium.
const DefaultThreshold = 0.6

// Band buckets a risk against threshold.
func Band(risk, threshold float64) models.RiskBand {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	switch {
	case risk < threshold*0.5:
		return models.RiskBandLow
	case risk < threshold:
		return models.RiskBandMedium
	default:
		return models.RiskBandHigh
	}
}

var bandColors = map[models.RiskBand]string{
	models.RiskBandLow:    "green",
	models.RiskBandMedium: "yellow",
	models.RiskBandHigh:   "red",
}

// Gauge renders the headline risk as a 0-100 dial.
func Gauge(risk, threshold float64) models.Gauge {
	return models.Gauge{
		Title: "Churn Probability",
		Value: risk * 100,
		Color: bandColors[Band(risk, threshold)],
		Steps: []models.GaugeStep{
			{From: 0, To: 30, Color: "rgba(0, 255, 0, 0.3)"},
			{From: 30, To: 60, Color: "rgba(255, 255, 0, 0.3)"},
			{From: 60, To: 100, Color: "rgba(255, 0, 0, 0.3)"},
		},
	}
}

// ModelProbabilities charts each model's probability, labelled by display name.
func ModelProbabilities(scores []models.ModelScore) models.BarChart {
	chart := models.BarChart{Title: "Churn Probability by Model", XTitle: "Probability", YTitle: "Models"}
	for _, s := range scores {
		chart.Labels = append(chart.Labels, s.Label)
		chart.Values = append(chart.Values, s.Probability)
		chart.Text = append(chart.Text, percent(s.Probability))
	}
	return chart
}

// PercentileMetrics are the attributes ranked against the reference customers.
var PercentileMetrics = []string{"CreditScore", "Age", "Tenure", "Balance", "NumOfProducts", "EstimatedSalary"}

// Percentiles ranks the customer's attributes against every reference record.
func Percentiles(ds *dataset.Dataset, in models.CustomerInputs) models.BarChart {
	chart := models.BarChart{Title: "Customer percentiles", XTitle: "Percentile", YTitle: "Metric"}
	if ds == nil {
		return chart
	}
	records := ds.Customers()
	values := map[string]float64{
		"CreditScore":     float64(in.CreditScore),
		"Age":             float64(in.Age),
		"Tenure":          float64(in.Tenure),
		"Balance":         in.Balance,
		"NumOfProducts":   float64(in.NumOfProducts),
		"EstimatedSalary": in.EstimatedSalary,
	}
	for _, metric := range PercentileMetrics {
		rank := stats.PercentileRank(stats.Column(records, metric), values[metric])
		chart.Labels = append(chart.Labels, metric)
		chart.Values = append(chart.Values, rank)
		chart.Text = append(chart.Text, percent(rank))
	}
	return chart
}

func percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

package explain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/stats"
)

// DefaultRiskThreshold is the risk at which the explanation grows to three sentences.
const DefaultRiskThreshold = 0.6

// PromptInput carries everything quoted in an explanation prompt.
type PromptInput struct {
	Surname     string
	Risk        float64
	Features    []models.Feature
	Importances []Importance
	TopFeatures int
	Threshold   float64
	Churned     stats.Table
	Retained    stats.Table
}

// SentenceCount is the explanation length requested for risk.
func SentenceCount(risk, threshold float64) int {
	if threshold <= 0 {
		threshold = DefaultRiskThreshold
	}
	if risk >= threshold {
		return 3
	}
	return 2
}

// BuildPrompt renders the explanation request. Equal inputs yield equal prompts.
func BuildPrompt(in PromptInput) string {
	threshold := in.Threshold
	if threshold <= 0 {
		threshold = DefaultRiskThreshold
	}
	thresholdPct := strconv.FormatFloat(threshold*100, 'f', -1, 64)

	var b strings.Builder
	b.WriteString("You are an expert data scientist at a bank, where you specialize in interpreting and explaining predictions of machine learning models.\n")
	b.WriteString("Your machine learning model calculated the probability that a customer will churn. The information is shared below.\n\n")

	b.WriteString("Customer information:\n")
	fmt.Fprintf(&b, "Name: %s\n", in.Surname)
	fmt.Fprintf(&b, "Risk of churning: %s%%\n", formatRisk(in.Risk))
	for _, f := range in.Features {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, strconv.FormatFloat(f.Value, 'f', -1, 64))
	}
	b.WriteString("\n")

	rows := topImportances(in.Importances, in.TopFeatures)
	fmt.Fprintf(&b, "Here are the machine learning model's top %d most important features for predicting churn:\n", len(rows))
	fmt.Fprintf(&b, "%-20s| Importance\n", "Feature")
	b.WriteString("--------------------------------\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "%-20s| %.6f\n", row.Feature, row.Importance)
	}
	b.WriteString("\n")

	b.WriteString("Here are summary statistics for churned customers:\n")
	b.WriteString(in.Churned.String())
	b.WriteString("\n")
	b.WriteString("Here are summary statistics for non-churned customers:\n")
	b.WriteString(in.Retained.String())
	b.WriteString("\n")

	if SentenceCount(in.Risk, threshold) == 3 {
		fmt.Fprintf(&b, "- The customer has at least a %s%% risk of churning: generate a 3 sentence explanation of why they are at risk of churning.\n", thresholdPct)
	} else {
		fmt.Fprintf(&b, "- The customer has less than a %s%% risk of churning: generate a 2 sentence explanation of why they might not be at risk of churning.\n", thresholdPct)
	}
	b.WriteString("- Your explanation should be based on the customer's information, the summary statistics of churned and non-churned customers, and the feature importances provided.\n\n")
	b.WriteString("Don't mention the probability of churning, or the machine learning model, or say anything like \"Based on the machine learning model's prediction and top 10 most important features\", just explain the prediction.\n")
	return b.String()
}

// formatRisk renders risk as a percentage rounded half away from zero to one decimal.
func formatRisk(risk float64) string {
	return strconv.FormatFloat(math.Round(risk*1000)/10, 'f', 1, 64)
}

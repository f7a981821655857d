// Package stats computes the descriptive statistics quoted in explanation
// prompts and the percentile ranks shown next to a prediction.
package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/miradorstack/churn-explainer/internal/models"
)

// Summary holds count, mean, sample std, min, quartiles and max of one column.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe summarises values. Std is the sample deviation and is NaN below
// two values; every statistic but Count is NaN for an empty input.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	std := math.NaN()
	if n > 1 {
		variance := 0.0
		for _, v := range sorted {
			variance += math.Pow(v-mean, 2)
		}
		std = math.Sqrt(variance / float64(n-1))
	}

	return Summary{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		Q25:   quantile(sorted, 0.25),
		Q50:   quantile(sorted, 0.50),
		Q75:   quantile(sorted, 0.75),
		Max:   sorted[n-1],
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// PercentileRank returns the share of values less than or equal to v, in [0,1].
func PercentileRank(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, x := range values {
		if x <= v {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

// Numeric columns of the reference table, in file order.
var NumericColumns = []string{
	"CustomerId", "CreditScore", "Age", "Tenure", "Balance", "NumOfProducts",
	"HasCrCard", "IsActiveMember", "EstimatedSalary", "Exited",
}

// Column extracts one numeric column from records. Unknown names yield nil.
func Column(records []models.CustomerRecord, name string) []float64 {
	get := columnGetter(name)
	if get == nil {
		return nil
	}
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}

func columnGetter(name string) func(models.CustomerRecord) float64 {
	switch name {
	case "CustomerId":
		return func(r models.CustomerRecord) float64 { return float64(r.CustomerID) }
	case "CreditScore":
		return func(r models.CustomerRecord) float64 { return float64(r.CreditScore) }
	case "Age":
		return func(r models.CustomerRecord) float64 { return float64(r.Age) }
	case "Tenure":
		return func(r models.CustomerRecord) float64 { return float64(r.Tenure) }
	case "Balance":
		return func(r models.CustomerRecord) float64 { return r.Balance }
	case "NumOfProducts":
		return func(r models.CustomerRecord) float64 { return float64(r.NumOfProducts) }
	case "HasCrCard":
		return func(r models.CustomerRecord) float64 { return flag(r.HasCrCard) }
	case "IsActiveMember":
		return func(r models.CustomerRecord) float64 { return flag(r.IsActiveMember) }
	case "EstimatedSalary":
		return func(r models.CustomerRecord) float64 { return r.EstimatedSalary }
	case "Exited":
		return func(r models.CustomerRecord) float64 { return flag(r.Exited) }
	}
	return nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Table is a describe() result over several columns.
type Table struct {
	Columns   []string
	Summaries []Summary
}

// DescribeRecords summarises every numeric column of records.
func DescribeRecords(records []models.CustomerRecord) Table {
	t := Table{Columns: slices.Clone(NumericColumns)}
	for _, col := range t.Columns {
		t.Summaries = append(t.Summaries, Describe(Column(records, col)))
	}
	return t
}

// String renders the table with statistics as rows and columns as columns.
func (t Table) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, col := range t.Columns {
		fmt.Fprintf(w, "%s\t", col)
	}
	fmt.Fprintln(w)

	rows := []struct {
		label string
		pick  func(Summary) float64
	}{
		{"count", func(s Summary) float64 { return float64(s.Count) }},
		{"mean", func(s Summary) float64 { return s.Mean }},
		{"std", func(s Summary) float64 { return s.Std }},
		{"min", func(s Summary) float64 { return s.Min }},
		{"25%", func(s Summary) float64 { return s.Q25 }},
		{"50%", func(s Summary) float64 { return s.Q50 }},
		{"75%", func(s Summary) float64 { return s.Q75 }},
		{"max", func(s Summary) float64 { return s.Max }},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t", row.label)
		for _, s := range t.Summaries {
			fmt.Fprintf(w, "%s\t", formatStat(row.pick(s)))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	return b.String()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.6f", v)
}

package features

import "github.com/miradorstack/churn-explainer/internal/models"

// Engineered columns read by the feature-engineering model. Age groups are
// one-hot with Young (age <= 30) as the dropped baseline.
const (
	CLV               = "CLV"
	TenureAgeRatio    = "TenureAgeRatio"
	AgeGroupMiddleAge = "AgeGroup_MiddleAge"
	AgeGroupSenior    = "AgeGroup_Senior"
	AgeGroupElderly   = "AgeGroup_Elderly"
)

var engineered = []string{CLV, TenureAgeRatio, AgeGroupMiddleAge, AgeGroupSenior, AgeGroupElderly}

// EngineeredSchema returns the engineered column names in Extend order.
func EngineeredSchema() []string {
	return append([]string(nil), engineered...)
}

// Extend encodes in and appends the engineered columns. Models pick the
// columns they need by name, so base-schema models score it unchanged.
func Extend(in models.CustomerInputs) Vector {
	base := Encode(in)
	ratio := 0.0
	if in.Age > 0 {
		ratio = float64(in.Tenure) / float64(in.Age)
	}
	// bins are right-inclusive: (30,45], (45,60], (60,100]
	values := []float64{
		in.Balance * in.EstimatedSalary / 100000,
		ratio,
		boolToFloat(in.Age > 30 && in.Age <= 45),
		boolToFloat(in.Age > 45 && in.Age <= 60),
		boolToFloat(in.Age > 60),
	}
	return Vector{
		names:  append(base.names, engineered...),
		values: append(base.values, values...),
	}
}

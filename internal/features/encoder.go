// Package features turns customer attributes into the numeric vector the
// trained classifiers expect.
package features

import (
	"github.com/miradorstack/churn-explainer/internal/models"
)

// Feature names in the order the classifiers were trained with.
const (
	CreditScore      = "CreditScore"
	Age              = "Age"
	Tenure           = "Tenure"
	Balance          = "Balance"
	NumOfProducts    = "NumOfProducts"
	HasCrCard        = "HasCrCard"
	IsActiveMember   = "IsActiveMember"
	EstimatedSalary  = "EstimatedSalary"
	GeographyFrance  = "Geography_France"
	GeographyGermany = "Geography_Germany"
	GeographySpain   = "Geography_Spain"
	GenderMale       = "Gender_Male"
	GenderFemale     = "Gender_Female"
)

var schema = []string{
	CreditScore,
	Age,
	Tenure,
	Balance,
	NumOfProducts,
	HasCrCard,
	IsActiveMember,
	EstimatedSalary,
	GeographyFrance,
	GeographyGermany,
	GeographySpain,
	GenderMale,
	GenderFemale,
}

// Schema returns a copy of the encoder's output column names.
func Schema() []string {
	return append([]string(nil), schema...)
}

// Encode builds the feature vector for one customer. Values are not clamped:
// an out-of-range credit score or age is passed to the models unchanged, and
// an unknown geography or gender leaves every flag of that group at zero.
func Encode(in models.CustomerInputs) Vector {
	values := []float64{
		float64(in.CreditScore),
		float64(in.Age),
		float64(in.Tenure),
		in.Balance,
		float64(in.NumOfProducts),
		boolToFloat(in.HasCrCard),
		boolToFloat(in.IsActiveMember),
		in.EstimatedSalary,
		boolToFloat(in.Geography == models.GeographyFrance),
		boolToFloat(in.Geography == models.GeographyGermany),
		boolToFloat(in.Geography == models.GeographySpain),
		boolToFloat(in.Gender == models.GenderMale),
		boolToFloat(in.Gender == models.GenderFemale),
	}
	return Vector{names: Schema(), values: values}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

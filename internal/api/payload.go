package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/churn-explainer/internal/models"
)

// PredictionPayload is the wire form of a prediction request shared by the
// HTTP and gRPC transports.
type PredictionPayload struct {
	CustomerID      int64          `json:"customer_id" validate:"gte=0"`
	Surname         string         `json:"surname" validate:"max=128"`
	Inputs          *InputsPayload `json:"inputs,omitempty"`
	SkipExplanation bool           `json:"skip_explanation"`
}

// InputsPayload carries editable customer attributes within the ranges the
// trained models were fitted on.
type InputsPayload struct {
	CreditScore     int     `json:"credit_score" validate:"gte=300,lte=850"`
	Geography       string  `json:"geography" validate:"required,oneof=France Germany Spain"`
	Gender          string  `json:"gender" validate:"required,oneof=Male Female"`
	Age             int     `json:"age" validate:"gte=18,lte=100"`
	Tenure          int     `json:"tenure" validate:"gte=0,lte=50"`
	Balance         float64 `json:"balance" validate:"gte=0"`
	NumOfProducts   int     `json:"num_of_products" validate:"gte=1,lte=10"`
	HasCrCard       bool    `json:"has_cr_card"`
	IsActiveMember  bool    `json:"is_active_member"`
	EstimatedSalary float64 `json:"estimated_salary" validate:"gte=0"`
}

// Validate checks field ranges with v.
func (p PredictionPayload) Validate(v *validator.Validate) error {
	return v.Struct(p)
}

// ToDomain converts the payload into a pipeline request.
func (p PredictionPayload) ToDomain() models.PredictionRequest {
	req := models.PredictionRequest{
		CustomerID:      p.CustomerID,
		Surname:         p.Surname,
		SkipExplanation: p.SkipExplanation,
	}
	if p.Inputs != nil {
		in := models.CustomerInputs{
			CreditScore:     p.Inputs.CreditScore,
			Geography:       p.Inputs.Geography,
			Gender:          p.Inputs.Gender,
			Age:             p.Inputs.Age,
			Tenure:          p.Inputs.Tenure,
			Balance:         p.Inputs.Balance,
			NumOfProducts:   p.Inputs.NumOfProducts,
			HasCrCard:       p.Inputs.HasCrCard,
			IsActiveMember:  p.Inputs.IsActiveMember,
			EstimatedSalary: p.Inputs.EstimatedSalary,
		}
		req.Inputs = &in
	}
	return req
}

package models

import "fmt"

// Geography values understood by the trained models.
const (
	GeographyFrance  = "France"
	GeographyGermany = "Germany"
	GeographySpain   = "Spain"
)

// Gender values understood by the trained models.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Geographies lists the location categories in one-hot order.
var Geographies = []string{GeographyFrance, GeographyGermany, GeographySpain}

// Genders lists the gender categories in one-hot order.
var Genders = []string{GenderMale, GenderFemale}

// CustomerRecord is one row of the reference dataset.
type CustomerRecord struct {
	CustomerID      int64   `json:"customer_id"`
	Surname         string  `json:"surname"`
	CreditScore     int     `json:"credit_score"`
	Geography       string  `json:"geography"`
	Gender          string  `json:"gender"`
	Age             int     `json:"age"`
	Tenure          int     `json:"tenure"`
	Balance         float64 `json:"balance"`
	NumOfProducts   int     `json:"num_of_products"`
	HasCrCard       bool    `json:"has_cr_card"`
	IsActiveMember  bool    `json:"is_active_member"`
	EstimatedSalary float64 `json:"estimated_salary"`
	Exited          bool    `json:"exited"`
}

// Inputs returns the editable attributes of the record.
func (r CustomerRecord) Inputs() CustomerInputs {
	return CustomerInputs{
		CreditScore:     r.CreditScore,
		Geography:       r.Geography,
		Gender:          r.Gender,
		Age:             r.Age,
		Tenure:          r.Tenure,
		Balance:         r.Balance,
		NumOfProducts:   r.NumOfProducts,
		HasCrCard:       r.HasCrCard,
		IsActiveMember:  r.IsActiveMember,
		EstimatedSalary: r.EstimatedSalary,
	}
}

// Label renders the selector text shown for a customer.
func (r CustomerRecord) Label() string {
	return fmt.Sprintf("%d - %s", r.CustomerID, r.Surname)
}

// CustomerInputs are the attributes fed to the feature encoder.
// Range checks belong to the transports; the encoder passes values through.
type CustomerInputs struct {
	CreditScore     int     `json:"credit_score"`
	Geography       string  `json:"geography"`
	Gender          string  `json:"gender"`
	Age             int     `json:"age"`
	Tenure          int     `json:"tenure"`
	Balance         float64 `json:"balance"`
	NumOfProducts   int     `json:"num_of_products"`
	HasCrCard       bool    `json:"has_cr_card"`
	IsActiveMember  bool    `json:"is_active_member"`
	EstimatedSalary float64 `json:"estimated_salary"`
}

// CustomerOption is an entry of the customer selector.
type CustomerOption struct {
	CustomerID int64  `json:"customer_id"`
	Surname    string `json:"surname"`
	Label      string `json:"label"`
}

package models

import "time"

// PredictionRequest is one user action against the pipeline.
type PredictionRequest struct {
	CustomerID int64
	// Inputs overrides the stored attributes when set. With CustomerID 0 the
	// prediction runs for an ad-hoc customer named Surname.
	Inputs          *CustomerInputs
	Surname         string
	SkipExplanation bool
}

// ModelScore is the positive-class probability produced by one model.
type ModelScore struct {
	Model       string  `json:"model"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Feature is a named numeric model input.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RiskBand buckets the aggregate risk for display.
type RiskBand string

const (
	RiskBandLow    RiskBand = "low"
	RiskBandMedium RiskBand = "medium"
	RiskBandHigh   RiskBand = "high"
)

// PredictionResult summarises one pipeline run.
type PredictionResult struct {
	PredictionID     string         `json:"prediction_id"`
	CustomerID       int64          `json:"customer_id"`
	Surname          string         `json:"surname"`
	Inputs           CustomerInputs `json:"inputs"`
	Features         []Feature      `json:"features"`
	Scores           []ModelScore   `json:"scores"`
	Risk             float64        `json:"risk"`
	Band             RiskBand       `json:"band"`
	Explanation      string         `json:"explanation,omitempty"`
	ExplanationError string         `json:"explanation_error,omitempty"`
	Charts           Charts         `json:"charts"`
	CreatedAt        time.Time      `json:"created_at"`
}

// InspectionResult lists every loaded model's score for one set of inputs.
type InspectionResult struct {
	CustomerID int64        `json:"customer_id"`
	Scores     []ModelScore `json:"scores"`
	Aggregate  []string     `json:"aggregate"`
}

// ModelInfo describes a loaded model artifact.
type ModelInfo struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Kind      string   `json:"kind"`
	Features  []string `json:"features"`
	Aggregate bool     `json:"aggregate"`
}

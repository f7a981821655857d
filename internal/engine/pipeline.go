package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/churn-explainer/internal/charts"
	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/features"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

// Explainer describes the explanation step used by the pipeline.
type Explainer interface {
	Explain(ctx context.Context, risk float64, features []models.Feature, surname string, ds *dataset.Dataset) (string, error)
}

// Pipeline runs one prediction per user action: encode, score, aggregate, explain.
type Pipeline struct {
	logger    *slog.Logger
	registry  *classifier.Registry
	scorer    *Scorer
	dataset   *dataset.Dataset
	explainer Explainer
	threshold float64
	now       func() time.Time
}

// NewPipeline constructs a prediction pipeline. explainer may be nil, in
// which case every result carries an explanation error.
func NewPipeline(logger *slog.Logger, registry *classifier.Registry, ds *dataset.Dataset, explainer Explainer, threshold float64) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = charts.DefaultThreshold
	}
	return &Pipeline{
		logger:    logger,
		registry:  registry,
		scorer:    NewScorer(registry),
		dataset:   ds,
		explainer: explainer,
		threshold: threshold,
		now:       time.Now,
	}
}

// Predict scores one customer and asks for an explanation of the result.
// A failed explanation is reported in the result, not as an error.
func (p *Pipeline) Predict(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	customerID, surname, inputs, err := p.resolve(req)
	if err != nil {
		return models.PredictionResult{}, err
	}

	vector := features.Encode(inputs)
	scores, err := p.scorer.ScoreAll(features.Extend(inputs))
	if err != nil {
		return models.PredictionResult{}, err
	}
	risk, err := Aggregate(scores)
	if err != nil {
		return models.PredictionResult{}, utils.NewAppError(utils.KindSchemaMismatch, "engine.Predict", "aggregate", err)
	}

	result := models.PredictionResult{
		PredictionID: uuid.NewString(),
		CustomerID:   customerID,
		Surname:      surname,
		Inputs:       inputs,
		Features:     vector.Features(),
		Scores:       scores,
		Risk:         risk,
		Band:         charts.Band(risk, p.threshold),
		Charts: models.Charts{
			Gauge:       charts.Gauge(risk, p.threshold),
			Models:      charts.ModelProbabilities(scores),
			Percentiles: charts.Percentiles(p.dataset, inputs),
		},
		CreatedAt: p.now().UTC(),
	}

	p.logger.Debug("prediction scored",
		slog.Int64("customer_id", customerID),
		slog.Float64("risk", risk),
		slog.String("prediction_id", result.PredictionID),
	)

	if req.SkipExplanation {
		return result, nil
	}
	if p.explainer == nil {
		result.ExplanationError = "explanations are not configured"
		return result, nil
	}
	text, err := p.explainer.Explain(ctx, risk, result.Features, surname, p.dataset)
	if err != nil {
		p.logger.Warn("explanation failed",
			slog.Int64("customer_id", customerID),
			slog.String("prediction_id", result.PredictionID),
			slog.Any("error", err),
		)
		result.ExplanationError = err.Error()
		return result, nil
	}
	result.Explanation = text
	return result, nil
}

// Inspect scores the same inputs with every loaded model.
func (p *Pipeline) Inspect(req models.PredictionRequest) (models.InspectionResult, error) {
	customerID, _, inputs, err := p.resolve(req)
	if err != nil {
		return models.InspectionResult{}, err
	}
	scores, err := p.scorer.ScoreEvery(features.Extend(inputs))
	if err != nil {
		return models.InspectionResult{}, err
	}
	aggregate := make([]string, 0)
	for _, e := range p.registry.Aggregate() {
		aggregate = append(aggregate, e.Name)
	}
	return models.InspectionResult{CustomerID: customerID, Scores: scores, Aggregate: aggregate}, nil
}

func (p *Pipeline) resolve(req models.PredictionRequest) (int64, string, models.CustomerInputs, error) {
	if req.CustomerID == 0 {
		if req.Inputs == nil {
			return 0, "", models.CustomerInputs{}, utils.NewAppError(utils.KindInvalidInput, "engine.resolve", "customer id or inputs required", nil)
		}
		return 0, req.Surname, *req.Inputs, nil
	}
	if p.dataset == nil {
		return 0, "", models.CustomerInputs{}, utils.NewAppError(utils.KindNotFound, "engine.resolve", "no reference dataset loaded", nil)
	}
	record, ok := p.dataset.ByID(req.CustomerID)
	if !ok {
		return 0, "", models.CustomerInputs{}, utils.NewAppError(utils.KindNotFound, "engine.resolve",
			fmt.Sprintf("customer %d not found", req.CustomerID), nil)
	}
	inputs := record.Inputs()
	if req.Inputs != nil {
		inputs = *req.Inputs
	}
	return record.CustomerID, record.Surname, inputs, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/churn-explainer/internal/api"
	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/engine"
	"github.com/miradorstack/churn-explainer/internal/metrics"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

// PredictionService is the facade shared by the gRPC and HTTP transports.
type PredictionService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	registry  *classifier.Registry
	dataset   *dataset.Dataset
	validate  *validator.Validate
	latencies *utils.LatencyTracker
}

var _ api.ChurnPredictorServer = (*PredictionService)(nil)

// NewPredictionService constructs the prediction service facade.
func NewPredictionService(logger *slog.Logger, pipeline *engine.Pipeline, registry *classifier.Registry, ds *dataset.Dataset) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionService{
		logger:    logger,
		pipeline:  pipeline,
		registry:  registry,
		dataset:   ds,
		validate:  validator.New(),
		latencies: utils.NewLatencyTracker(1024),
	}
}

// RunPrediction executes the pipeline and records metrics.
func (s *PredictionService) RunPrediction(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error) {
	if s.pipeline == nil {
		return models.PredictionResult{}, fmt.Errorf("pipeline not configured")
	}

	start := time.Now()
	result, err := s.pipeline.Predict(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObservePrediction(duration, metrics.OutcomeError)
		s.logger.Error("prediction failed", slog.Int64("customer_id", req.CustomerID), slog.Any("error", err))
		return models.PredictionResult{}, err
	}
	metrics.ObservePrediction(duration, metrics.OutcomeSuccess)
	for _, score := range result.Scores {
		metrics.ObserveModelProbability(score.Model, score.Probability)
	}
	switch {
	case req.SkipExplanation:
		metrics.ObserveExplanation(metrics.OutcomeSkipped)
	case result.ExplanationError != "":
		metrics.ObserveExplanation(metrics.OutcomeError)
	default:
		metrics.ObserveExplanation(metrics.OutcomeSuccess)
	}

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("prediction latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return result, nil
}

// InspectModels scores a customer with every loaded model.
func (s *PredictionService) InspectModels(req models.PredictionRequest) (models.InspectionResult, error) {
	if s.pipeline == nil {
		return models.InspectionResult{}, fmt.Errorf("pipeline not configured")
	}
	return s.pipeline.Inspect(req)
}

// Customers lists the selector options of the reference dataset.
func (s *PredictionService) Customers() []models.CustomerOption {
	if s.dataset == nil {
		return []models.CustomerOption{}
	}
	return s.dataset.Options()
}

// Customer returns one reference record.
func (s *PredictionService) Customer(id int64) (models.CustomerRecord, error) {
	if s.dataset != nil {
		if rec, ok := s.dataset.ByID(id); ok {
			return rec, nil
		}
	}
	return models.CustomerRecord{}, utils.NewAppError(utils.KindNotFound, "services.Customer", fmt.Sprintf("customer %d not found", id), nil)
}

// Models describes every loaded model.
func (s *PredictionService) Models() []models.ModelInfo {
	if s.registry == nil {
		return []models.ModelInfo{}
	}
	return s.registry.Infos()
}

// Predict implements the gRPC Predict method.
func (s *PredictionService) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Predict called", slog.Int64("customer_id", payload.CustomerID))

	result, err := s.RunPrediction(ctx, payload.ToDomain())
	if err != nil {
		return nil, statusFromError(err)
	}
	return encode(result)
}

// Inspect implements the gRPC Inspect method.
func (s *PredictionService) Inspect(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	payload, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	result, err := s.InspectModels(payload.ToDomain())
	if err != nil {
		return nil, statusFromError(err)
	}
	return encode(result)
}

// ListCustomers implements the gRPC ListCustomers method.
func (s *PredictionService) ListCustomers(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encode(map[string]any{"customers": s.Customers()})
}

// HealthCheck returns the current health state.
func (s *PredictionService) HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	customers := 0
	if s.dataset != nil {
		customers = s.dataset.Len()
	}
	return encode(map[string]any{
		"status":    "SERVING",
		"models":    len(s.Models()),
		"customers": customers,
	})
}

// LatencyP95 returns the current p95 prediction latency.
func (s *PredictionService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *PredictionService) decode(req *structpb.Struct) (api.PredictionPayload, error) {
	if req == nil {
		return api.PredictionPayload{}, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	payload, err := api.FromPredictionStruct(req)
	if err != nil {
		return api.PredictionPayload{}, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := payload.Validate(s.validate); err != nil {
		return api.PredictionPayload{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return payload, nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func statusFromError(err error) error {
	switch utils.KindOf(err) {
	case utils.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case utils.KindInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case utils.KindRemoteService:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("prediction failed: %v", err))
	}
}

package engine

import (
	"fmt"

	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/features"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

// Scorer runs feature vectors through the registry's models.
type Scorer struct {
	registry *classifier.Registry
}

// NewScorer creates a scorer over registry.
func NewScorer(registry *classifier.Registry) *Scorer {
	return &Scorer{registry: registry}
}

// ScoreAll scores the models averaged into the headline risk, in configured order.
func (s *Scorer) ScoreAll(vector features.Vector) ([]models.ModelScore, error) {
	return s.score(vector, s.registry.Aggregate())
}

// ScoreEvery scores every loaded model, in configured order.
func (s *Scorer) ScoreEvery(vector features.Vector) ([]models.ModelScore, error) {
	return s.score(vector, s.registry.Entries())
}

func (s *Scorer) score(vector features.Vector, entries []classifier.Entry) ([]models.ModelScore, error) {
	scores := make([]models.ModelScore, 0, len(entries))
	for _, entry := range entries {
		x, err := vector.Select(entry.Model.Features())
		if err != nil {
			return nil, utils.NewAppError(utils.KindSchemaMismatch, "engine.Score",
				fmt.Sprintf("feature vector does not fit model %s", entry.Name), err)
		}
		proba, err := entry.Model.PredictProba(x)
		if err != nil {
			return nil, utils.NewAppError(utils.KindSchemaMismatch, "engine.Score",
				fmt.Sprintf("model %s rejected the vector", entry.Name), err)
		}
		scores = append(scores, models.ModelScore{Model: entry.Name, Label: entry.Label, Probability: proba[1]})
	}
	return scores, nil
}

package engine

import (
	"errors"

	"github.com/miradorstack/churn-explainer/internal/models"
)

// ErrNoScores is returned when there is nothing to aggregate.
var ErrNoScores = errors.New("no model scores to aggregate")

// Aggregate returns the unweighted mean probability of scores.
func Aggregate(scores []models.ModelScore) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrNoScores
	}
	sum := 0.0
	for _, s := range scores {
		sum += s.Probability
	}
	return sum / float64(len(scores)), nil
}

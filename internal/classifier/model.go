package classifier

import (
	"fmt"
	"math"
)

// Model is a loaded binary classifier.
type Model interface {
	Kind() Kind
	// Features lists the expected input columns; PredictProba takes values in this order.
	Features() []string
	// PredictProba returns the (negative, positive) class probabilities for one record.
	PredictProba(x []float64) ([2]float64, error)
}

// Build validates an artifact and compiles it into a Model.
func Build(a Artifact) (Model, error) {
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("artifact %q declares no features", a.Name)
	}
	index := make(map[string]int, len(a.Features))
	for i, f := range a.Features {
		if f == "" {
			return nil, fmt.Errorf("artifact %q has an empty feature name", a.Name)
		}
		if _, dup := index[f]; dup {
			return nil, fmt.Errorf("artifact %q lists feature %q twice", a.Name, f)
		}
		index[f] = i
	}

	if a.Scaler != nil {
		if err := validateScaler(*a.Scaler, len(a.Features)); err != nil {
			return nil, fmt.Errorf("artifact %q: %w", a.Name, err)
		}
	}

	var (
		inner predictor
		err   error
	)
	switch a.Kind {
	case KindGradientBoosting:
		inner, err = newBoostedTrees(a, index)
	case KindRandomForest:
		inner, err = newForest(a, index, false)
	case KindDecisionTree:
		inner, err = newForest(a, index, true)
	case KindKNN:
		inner, err = newNeighbors(a)
	case KindGaussianNB:
		inner, err = newNaiveBayes(a)
	case KindLinearSVM:
		inner, err = newLinearSVM(a)
	case KindVoting:
		inner, err = newVoting(a)
	case "":
		return nil, fmt.Errorf("artifact %q has no kind", a.Name)
	default:
		return nil, fmt.Errorf("artifact %q has unsupported kind %q", a.Name, a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact %q: %w", a.Name, err)
	}

	return &compiled{
		kind:     a.Kind,
		features: append([]string(nil), a.Features...),
		scaler:   a.Scaler,
		inner:    inner,
	}, nil
}

// predictor is the kind-specific part of a model; x is already scaled.
type predictor interface {
	positive(x []float64) (float64, error)
}

type compiled struct {
	kind     Kind
	features []string
	scaler   *ScalerSpec
	inner    predictor
}

func (m *compiled) Kind() Kind { return m.kind }

func (m *compiled) Features() []string { return append([]string(nil), m.features...) }

func (m *compiled) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != len(m.features) {
		return [2]float64{}, fmt.Errorf("expected %d feature values, got %d", len(m.features), len(x))
	}
	p, err := m.inner.positive(m.scaler.apply(x))
	if err != nil {
		return [2]float64{}, err
	}
	if math.IsNaN(p) {
		return [2]float64{}, fmt.Errorf("%s model produced NaN", m.kind)
	}
	p = clamp01(p)
	return [2]float64{1 - p, p}, nil
}

// apply standardises x; a nil scaler returns x unchanged.
func (s *ScalerSpec) apply(x []float64) []float64 {
	if s == nil {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}

func validateScaler(s ScalerSpec, width int) error {
	if len(s.Mean) != width || len(s.Scale) != width {
		return fmt.Errorf("scaler expects %d means and scales, got %d and %d", width, len(s.Mean), len(s.Scale))
	}
	for i, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) {
			return fmt.Errorf("scaler scale %d must be non-zero", i)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

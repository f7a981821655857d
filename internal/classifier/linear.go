package classifier

import (
	"fmt"
	"math"
)

// naiveBayes is a two-class Gaussian naive Bayes model.
type naiveBayes struct {
	logPriors [2]float64
	means     [2][]float64
	variances [2][]float64
}

func newNaiveBayes(a Artifact) (*naiveBayes, error) {
	spec := a.NaiveBayes
	if spec == nil {
		return nil, fmt.Errorf("gaussian_nb artifact needs a naive_bayes section")
	}
	if len(spec.Priors) != 2 || len(spec.Means) != 2 || len(spec.Variances) != 2 {
		return nil, fmt.Errorf("gaussian_nb needs exactly two classes")
	}
	nb := &naiveBayes{}
	for c := 0; c < 2; c++ {
		if spec.Priors[c] <= 0 {
			return nil, fmt.Errorf("prior for class %d must be positive", c)
		}
		if len(spec.Means[c]) != len(a.Features) || len(spec.Variances[c]) != len(a.Features) {
			return nil, fmt.Errorf("class %d parameters do not cover %d features", c, len(a.Features))
		}
		for j, v := range spec.Variances[c] {
			if v <= 0 {
				return nil, fmt.Errorf("class %d variance %d must be positive", c, j)
			}
		}
		nb.logPriors[c] = math.Log(spec.Priors[c])
		nb.means[c] = spec.Means[c]
		nb.variances[c] = spec.Variances[c]
	}
	return nb, nil
}

func (nb *naiveBayes) positive(x []float64) (float64, error) {
	var joint [2]float64
	for c := 0; c < 2; c++ {
		ll := nb.logPriors[c]
		for j, v := range x {
			variance := nb.variances[c][j]
			d := v - nb.means[c][j]
			ll -= 0.5*math.Log(2*math.Pi*variance) + d*d/(2*variance)
		}
		joint[c] = ll
	}
	top := math.Max(joint[0], joint[1])
	e0 := math.Exp(joint[0] - top)
	e1 := math.Exp(joint[1] - top)
	return e1 / (e0 + e1), nil
}

// linearSVM maps the decision function through Platt scaling.
type linearSVM struct {
	coef      []float64
	intercept float64
	a, b      float64
}

func newLinearSVM(a Artifact) (*linearSVM, error) {
	spec := a.SVM
	if spec == nil {
		return nil, fmt.Errorf("linear_svm artifact needs an svm section")
	}
	if len(spec.Coef) != len(a.Features) {
		return nil, fmt.Errorf("svm has %d coefficients, want %d", len(spec.Coef), len(a.Features))
	}
	return &linearSVM{coef: spec.Coef, intercept: spec.Intercept, a: spec.PlattA, b: spec.PlattB}, nil
}

func (s *linearSVM) positive(x []float64) (float64, error) {
	f := s.intercept
	for i, v := range x {
		f += s.coef[i] * v
	}
	return 1 / (1 + math.Exp(s.a*f+s.b)), nil
}

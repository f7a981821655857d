// Package classifier decodes pre-trained model artifacts and runs
// single-record inference over them.
package classifier

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind names a supported artifact type.
type Kind string

const (
	KindGradientBoosting Kind = "gradient_boosting"
	KindRandomForest     Kind = "random_forest"
	KindDecisionTree     Kind = "decision_tree"
	KindKNN              Kind = "knn"
	KindGaussianNB       Kind = "gaussian_nb"
	KindLinearSVM        Kind = "linear_svm"
	KindVoting           Kind = "voting"
)

// Artifact is the serialised form of a trained classifier.
type Artifact struct {
	Name       string          `yaml:"name"`
	Kind       Kind            `yaml:"kind"`
	Features   []string        `yaml:"features"`
	Scaler     *ScalerSpec     `yaml:"scaler,omitempty"`
	BaseScore  *float64        `yaml:"base_score,omitempty"`
	Trees      []TreeSpec      `yaml:"trees,omitempty"`
	Neighbors  *NeighborsSpec  `yaml:"neighbors,omitempty"`
	NaiveBayes *NaiveBayesSpec `yaml:"naive_bayes,omitempty"`
	SVM        *SVMSpec        `yaml:"svm,omitempty"`
	Voting     *VotingSpec     `yaml:"voting,omitempty"`
}

// ScalerSpec standardises inputs as (x - mean) / scale before inference.
type ScalerSpec struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// TreeSpec is a flat list of nodes; node 0 is the root.
type TreeSpec struct {
	Nodes []NodeSpec `yaml:"nodes"`
}

// NodeSpec is either a split (Feature set) or a leaf (Value set).
// Children must have a larger index than their parent.
type NodeSpec struct {
	Feature   string    `yaml:"feature,omitempty"`
	Threshold float64   `yaml:"threshold,omitempty"`
	Left      int       `yaml:"left,omitempty"`
	Right     int       `yaml:"right,omitempty"`
	Value     []float64 `yaml:"value,omitempty"`
}

// NeighborsSpec holds the fitted samples of a k-nearest-neighbours model.
type NeighborsSpec struct {
	K       int         `yaml:"k"`
	Weights string      `yaml:"weights,omitempty"`
	Points  [][]float64 `yaml:"points"`
	Labels  []int       `yaml:"labels"`
}

// NaiveBayesSpec holds per-class priors, means and variances (class 0 first).
type NaiveBayesSpec struct {
	Priors    []float64   `yaml:"priors"`
	Means     [][]float64 `yaml:"means"`
	Variances [][]float64 `yaml:"variances"`
}

// SVMSpec holds a linear decision function and its Platt calibration.
type SVMSpec struct {
	Coef      []float64 `yaml:"coef"`
	Intercept float64   `yaml:"intercept"`
	PlattA    float64   `yaml:"platt_a"`
	PlattB    float64   `yaml:"platt_b"`
}

// VotingSpec combines inline member artifacts.
type VotingSpec struct {
	Mode    string     `yaml:"mode"`
	Members []Artifact `yaml:"members"`
}

// DecodeArtifact parses an artifact document. Unknown fields are rejected.
func DecodeArtifact(data []byte) (Artifact, error) {
	var artifact Artifact
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&artifact); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	return artifact, nil
}

// LoadArtifact reads, decodes and compiles an artifact file.
func LoadArtifact(path string) (Artifact, Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	artifact, err := DecodeArtifact(data)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	model, err := Build(artifact)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return artifact, model, nil
}

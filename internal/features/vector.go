package features

import (
	"fmt"

	"github.com/miradorstack/churn-explainer/internal/models"
)

// Vector is an ordered set of named feature values.
type Vector struct {
	names  []string
	values []float64
}

// NewVector pairs names with values; both slices must have the same length.
func NewVector(names []string, values []float64) (Vector, error) {
	if len(names) != len(values) {
		return Vector{}, fmt.Errorf("feature vector has %d names but %d values", len(names), len(values))
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return Vector{}, fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	return Vector{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
	}, nil
}

// Len returns the number of features.
func (v Vector) Len() int { return len(v.names) }

// Names returns the feature names in vector order.
func (v Vector) Names() []string { return append([]string(nil), v.names...) }

// Values returns the feature values in vector order.
func (v Vector) Values() []float64 { return append([]float64(nil), v.values...) }

// Get returns the value of a named feature.
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Map returns the vector as a name to value map.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		out[n] = v.values[i]
	}
	return out
}

// Features converts the vector into its ordered wire form.
func (v Vector) Features() []models.Feature {
	out := make([]models.Feature, 0, len(v.names))
	for i, n := range v.names {
		out = append(out, models.Feature{Name: n, Value: v.values[i]})
	}
	return out
}

// Reorder returns the values arranged in the given column order. It fails
// unless columns is exactly the vector's name set.
func (v Vector) Reorder(columns []string) ([]float64, error) {
	if len(columns) != len(v.names) {
		return nil, fmt.Errorf("expected %d columns, vector has %d", len(columns), len(v.names))
	}
	return v.Select(columns)
}

// Select returns the values of columns in that order. Columns must be
// distinct and present; vector columns not asked for are ignored.
func (v Vector) Select(columns []string) ([]float64, error) {
	index := make(map[string]int, len(v.names))
	for i, n := range v.names {
		index[n] = i
	}
	out := make([]float64, len(columns))
	for i, col := range columns {
		j, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("column %q not present in feature vector", col)
		}
		out[i] = v.values[j]
		delete(index, col)
	}
	return out, nil
}

package classifier

import (
	"fmt"
	"math"
	"sort"
)

type neighbors struct {
	k        int
	distance bool
	points   [][]float64
	labels   []int
}

func newNeighbors(a Artifact) (*neighbors, error) {
	spec := a.Neighbors
	if spec == nil {
		return nil, fmt.Errorf("knn artifact needs a neighbors section")
	}
	if spec.K < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", spec.K)
	}
	if len(spec.Points) == 0 || len(spec.Points) != len(spec.Labels) {
		return nil, fmt.Errorf("need matching points and labels, got %d and %d", len(spec.Points), len(spec.Labels))
	}
	if spec.K > len(spec.Points) {
		return nil, fmt.Errorf("k=%d exceeds %d fitted points", spec.K, len(spec.Points))
	}
	for i, p := range spec.Points {
		if len(p) != len(a.Features) {
			return nil, fmt.Errorf("point %d has %d values, want %d", i, len(p), len(a.Features))
		}
		if l := spec.Labels[i]; l != 0 && l != 1 {
			return nil, fmt.Errorf("label %d must be 0 or 1, got %d", i, l)
		}
	}
	// points are stored in the scaled space the queries arrive in
	points := make([][]float64, len(spec.Points))
	for i, p := range spec.Points {
		points[i] = a.Scaler.apply(p)
	}
	n := &neighbors{k: spec.K, points: points, labels: spec.Labels}
	switch spec.Weights {
	case "", "uniform":
	case "distance":
		n.distance = true
	default:
		return nil, fmt.Errorf("unknown neighbour weighting %q", spec.Weights)
	}
	return n, nil
}

func (n *neighbors) positive(x []float64) (float64, error) {
	type hit struct {
		idx  int
		dist float64
	}
	hits := make([]hit, len(n.points))
	for i, p := range n.points {
		sum := 0.0
		for j, v := range p {
			d := x[j] - v
			sum += d * d
		}
		hits[i] = hit{idx: i, dist: math.Sqrt(sum)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })
	nearest := hits[:n.k]

	if n.distance {
		// exact matches take all the weight
		exact, exactPos := 0, 0
		for _, h := range nearest {
			if h.dist == 0 {
				exact++
				exactPos += n.labels[h.idx]
			}
		}
		if exact > 0 {
			return float64(exactPos) / float64(exact), nil
		}
		var total, pos float64
		for _, h := range nearest {
			w := 1 / h.dist
			total += w
			if n.labels[h.idx] == 1 {
				pos += w
			}
		}
		if total == 0 || math.IsInf(total, 0) || math.IsNaN(total) {
			return 0, fmt.Errorf("neighbour distances are not finite")
		}
		return pos / total, nil
	}

	pos := 0
	for _, h := range nearest {
		pos += n.labels[h.idx]
	}
	return float64(pos) / float64(n.k), nil
}

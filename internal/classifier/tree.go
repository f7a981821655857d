package classifier

import (
	"fmt"
	"math"
)

type treeNode struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64
}

type tree struct {
	nodes []treeNode
	// strict routes x < threshold to the left child (boosted trees);
	// otherwise x <= threshold goes left.
	strict bool
}

func compileTree(spec TreeSpec, index map[string]int, leafWidth int, strict bool) (*tree, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	t := &tree{nodes: make([]treeNode, len(spec.Nodes)), strict: strict}
	for i, n := range spec.Nodes {
		if n.Feature == "" {
			if len(n.Value) != leafWidth {
				return nil, fmt.Errorf("leaf %d needs %d values, has %d", i, leafWidth, len(n.Value))
			}
			t.nodes[i] = treeNode{leaf: true, value: append([]float64(nil), n.Value...)}
			continue
		}
		col, ok := index[n.Feature]
		if !ok {
			return nil, fmt.Errorf("node %d splits on unknown feature %q", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(spec.Nodes) || n.Right >= len(spec.Nodes) {
			return nil, fmt.Errorf("node %d has children %d/%d; children must follow their parent", i, n.Left, n.Right)
		}
		if math.IsNaN(n.Threshold) {
			return nil, fmt.Errorf("node %d has NaN threshold", i)
		}
		t.nodes[i] = treeNode{feature: col, threshold: n.Threshold, left: n.Left, right: n.Right}
	}
	return t, nil
}

func (t *tree) leafValue(x []float64) []float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		v := x[n.feature]
		goLeft := v <= n.threshold
		if t.strict {
			goLeft = v < n.threshold
		}
		if goLeft {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// boostedTrees sums leaf margins on top of the base score's log-odds.
type boostedTrees struct {
	baseMargin float64
	trees      []*tree
}

func newBoostedTrees(a Artifact, index map[string]int) (*boostedTrees, error) {
	base := 0.5
	if a.BaseScore != nil {
		base = *a.BaseScore
	}
	if base <= 0 || base >= 1 {
		return nil, fmt.Errorf("base_score must be in (0,1), got %v", base)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("gradient boosting needs at least one tree")
	}
	m := &boostedTrees{baseMargin: math.Log(base / (1 - base))}
	for i, spec := range a.Trees {
		t, err := compileTree(spec, index, 1, true)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, t)
	}
	return m, nil
}

func (m *boostedTrees) positive(x []float64) (float64, error) {
	margin := m.baseMargin
	for _, t := range m.trees {
		margin += t.leafValue(x)[0]
	}
	return sigmoid(margin), nil
}

// forest averages normalised class weights over its trees.
type forest struct {
	trees []*tree
}

func newForest(a Artifact, index map[string]int, single bool) (*forest, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("%s needs at least one tree", a.Kind)
	}
	if single && len(a.Trees) != 1 {
		return nil, fmt.Errorf("decision tree must contain exactly one tree, got %d", len(a.Trees))
	}
	f := &forest{}
	for i, spec := range a.Trees {
		t, err := compileTree(spec, index, 2, false)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for j, n := range t.nodes {
			if !n.leaf {
				continue
			}
			if n.value[0] < 0 || n.value[1] < 0 || n.value[0]+n.value[1] <= 0 {
				return nil, fmt.Errorf("tree %d leaf %d has invalid class weights %v", i, j, n.value)
			}
		}
		f.trees = append(f.trees, t)
	}
	return f, nil
}

func (f *forest) positive(x []float64) (float64, error) {
	sum := 0.0
	for _, t := range f.trees {
		w := t.leafValue(x)
		sum += w[1] / (w[0] + w[1])
	}
	return sum / float64(len(f.trees)), nil
}

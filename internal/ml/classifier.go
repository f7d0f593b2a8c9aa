package ml

import (
	"context"
	"fmt"
	"math"
)

// LogisticRegression is a fitted binary logistic model. A row is labelled 1
// when its probability is above the threshold.
type LogisticRegression struct {
	coef      []float64
	intercept float64
	threshold float64
}

func NewLogisticRegression(coef []float64, intercept, threshold float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("%w: logistic regression has no coefficients", ErrArtifactLoad)
	}
	if threshold == 0 {
		threshold = 0.5
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("%w: logistic threshold %g outside (0, 1)", ErrArtifactLoad, threshold)
	}
	return &LogisticRegression{
		coef:      append([]float64(nil), coef...),
		intercept: intercept,
		threshold: threshold,
	}, nil
}

func (m *LogisticRegression) Kind() string     { return "logistic" }
func (m *LogisticRegression) NumFeatures() int { return len(m.coef) }

// Probability returns P(label = 1) for a row of the right width.
func (m *LogisticRegression) Probability(row []float64) (float64, error) {
	if err := checkWidth("logistic regression", len(row), len(m.coef)); err != nil {
		return 0, err
	}
	z := m.intercept
	for i, x := range row {
		z += m.coef[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (m *LogisticRegression) Predict(_ context.Context, row []float64) (int, error) {
	p, err := m.Probability(row)
	if err != nil {
		return 0, err
	}
	if p > m.threshold {
		return 1, nil
	}
	return 0, nil
}

// TreeNode is one node of a flattened decision tree. Rows go left when
// row[Feature] <= Threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Label     int     `json:"label"`
	Leaf      bool    `json:"leaf"`
}

// DecisionTree walks a flattened node array starting at index 0.
type DecisionTree struct {
	nodes     []TreeNode
	nFeatures int
}

func NewDecisionTree(nodes []TreeNode, nFeatures int) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: decision tree has no nodes", ErrArtifactLoad)
	}
	if nFeatures <= 0 {
		return nil, fmt.Errorf("%w: decision tree does not declare its feature count", ErrArtifactLoad)
	}
	for i, n := range nodes {
		if n.Leaf {
			if n.Label != 0 && n.Label != 1 {
				return nil, fmt.Errorf("%w: leaf %d has label %d, expected 0 or 1", ErrArtifactLoad, i, n.Label)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return nil, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrArtifactLoad, i, n.Feature, nFeatures)
		}
		// Children always follow their parent, which also rules out cycles.
		if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
			return nil, fmt.Errorf("%w: node %d has invalid children %d/%d", ErrArtifactLoad, i, n.Left, n.Right)
		}
	}
	return &DecisionTree{nodes: append([]TreeNode(nil), nodes...), nFeatures: nFeatures}, nil
}

func (t *DecisionTree) Kind() string     { return "tree" }
func (t *DecisionTree) NumFeatures() int { return t.nFeatures }

func (t *DecisionTree) Predict(_ context.Context, row []float64) (int, error) {
	if err := checkWidth("decision tree", len(row), t.nFeatures); err != nil {
		return 0, err
	}
	return t.leaf(row), nil
}

func (t *DecisionTree) leaf(row []float64) int {
	idx := 0
	for {
		n := t.nodes[idx]
		if n.Leaf {
			return n.Label
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// RandomForest takes the majority label of its trees. Ties go to label 1 so
// an undecided forest reports the higher risk.
type RandomForest struct {
	trees     []*DecisionTree
	nFeatures int
}

func NewRandomForest(trees [][]TreeNode, nFeatures int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: random forest has no trees", ErrArtifactLoad)
	}
	f := &RandomForest{nFeatures: nFeatures, trees: make([]*DecisionTree, 0, len(trees))}
	for i, nodes := range trees {
		t, err := NewDecisionTree(nodes, nFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees = append(f.trees, t)
	}
	return f, nil
}

func (f *RandomForest) Kind() string     { return "forest" }
func (f *RandomForest) NumFeatures() int { return f.nFeatures }

func (f *RandomForest) Predict(_ context.Context, row []float64) (int, error) {
	if err := checkWidth("random forest", len(row), f.nFeatures); err != nil {
		return 0, err
	}
	votes := 0
	for _, t := range f.trees {
		if t.leaf(row) == 1 {
			votes++
		}
	}
	if 2*votes >= len(f.trees) {
		return 1, nil
	}
	return 0, nil
}

package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GradientBoosting is a squared-error gradient-boosted tree ensemble. Each
// round fits a depth-limited tree to the current residuals with an L2
// penalty on leaf weights, then adds it scaled by the learning rate.
type GradientBoosting struct {
	NEstimators  int     `json:"n_estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	Lambda       float64 `json:"lambda"`
	NFeatures    int     `json:"n_features"`
	BaseScore    float64 `json:"base_score"`
	Trees        []*Tree `json:"trees"`
}

// NewGradientBoosting returns an unfitted booster.
func NewGradientBoosting(estimators, maxDepth int, learningRate float64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:  estimators,
		MaxDepth:     maxDepth,
		LearningRate: learningRate,
		Lambda:       boostingLambda,
	}
}

func (g *GradientBoosting) Lib() string { return LibGradientBoosting }

func (g *GradientBoosting) Fit(X *mat.Dense, y []float64) error {
	n, c, err := checkInput(X, y)
	if err != nil {
		return fmt.Errorf("gradient boosting fit: %w", err)
	}

	rows := rowsOf(X)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	g.NFeatures = c
	g.BaseScore = stat.Mean(y, nil)
	g.Trees = make([]*Tree, 0, g.NEstimators)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.BaseScore
	}
	residual := make([]float64, n)
	params := treeParams{maxDepth: g.MaxDepth, minSamplesLeaf: 1, lambda: g.Lambda}

	for round := 0; round < g.NEstimators; round++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		tree := buildTree(rows, residual, idx, params)
		for i, row := range rows {
			pred[i] += g.LearningRate * tree.predictRow(row)
		}
		g.Trees = append(g.Trees, tree)
	}
	return nil
}

func (g *GradientBoosting) Predict(X *mat.Dense) ([]float64, error) {
	if len(g.Trees) == 0 {
		return nil, ErrNotFitted
	}
	n, c, err := checkInput(X, nil)
	if err != nil {
		return nil, fmt.Errorf("gradient boosting predict: %w", err)
	}
	if c != g.NFeatures {
		return nil, fmt.Errorf("gradient boosting predict: expected %d features, got %d", g.NFeatures, c)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		v := g.BaseScore
		for _, t := range g.Trees {
			v += g.LearningRate * t.predictRow(row)
		}
		out[i] = v
	}
	return out, nil
}

func (g *GradientBoosting) validate() error {
	if len(g.Trees) == 0 {
		return ErrNotFitted
	}
	for i, t := range g.Trees {
		if t == nil {
			return fmt.Errorf("tree %d missing", i)
		}
		if err := t.validate(g.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

package ml

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// RandomForest averages deeper trees grown on bootstrap resamples. Every
// tree considers all features at each split.
type RandomForest struct {
	NEstimators int     `json:"n_estimators"`
	MaxDepth    int     `json:"max_depth"`
	Seed        uint64  `json:"seed"`
	NFeatures   int     `json:"n_features"`
	Trees       []*Tree `json:"trees"`
}

// NewRandomForest returns an unfitted forest. The seed fixes the bootstrap
// draws.
func NewRandomForest(estimators, maxDepth int, seed uint64) *RandomForest {
	return &RandomForest{
		NEstimators: estimators,
		MaxDepth:    maxDepth,
		Seed:        seed,
	}
}

func (f *RandomForest) Lib() string { return LibRandomForest }

func (f *RandomForest) Fit(X *mat.Dense, y []float64) error {
	n, c, err := checkInput(X, y)
	if err != nil {
		return fmt.Errorf("random forest fit: %w", err)
	}

	rows := rowsOf(X)
	rng := rand.New(rand.NewPCG(f.Seed, f.Seed+1))
	params := treeParams{maxDepth: f.MaxDepth, minSamplesLeaf: 1}

	f.NFeatures = c
	f.Trees = make([]*Tree, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		f.Trees = append(f.Trees, buildTree(rows, y, sample, params))
	}
	return nil
}

func (f *RandomForest) Predict(X *mat.Dense) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	n, c, err := checkInput(X, nil)
	if err != nil {
		return nil, fmt.Errorf("random forest predict: %w", err)
	}
	if c != f.NFeatures {
		return nil, fmt.Errorf("random forest predict: expected %d features, got %d", f.NFeatures, c)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		var sum float64
		for _, t := range f.Trees {
			sum += t.predictRow(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

func (f *RandomForest) validate() error {
	if len(f.Trees) == 0 {
		return ErrNotFitted
	}
	for i, t := range f.Trees {
		if t == nil {
			return fmt.Errorf("tree %d missing", i)
		}
		if err := t.validate(f.NFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

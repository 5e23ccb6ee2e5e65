// Package ml implements the yield model lifecycle: tree-ensemble regressors,
// training on the synthetic dataset, artifact persistence, the model handle
// shared by request handlers, and the predictor that turns a farm record
// into a yield estimate with a heuristic confidence score.
//
// Two regressor families are available behind the Regressor interface and
// one is selected by configuration at startup.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Regressor families.
const (
	LibGradientBoosting = "gradient_boosting"
	LibRandomForest     = "random_forest"
)

// Ensemble hyperparameters.
const (
	DefaultEstimators = 100

	boostingMaxDepth     = 4
	boostingLearningRate = 0.3
	boostingLambda       = 1.0

	forestMaxDepth = 8
)

// Regressor is a fitted-once, read-only-afterwards numeric model. Predict
// must be safe for concurrent use once Fit has returned.
type Regressor interface {
	// Fit trains the model on rows of X against targets y.
	Fit(X *mat.Dense, y []float64) error

	// Predict returns one estimate per row of X.
	Predict(X *mat.Dense) ([]float64, error)

	// Lib names the regressor family.
	Lib() string
}

// validator is implemented by regressors that can check a decoded model.
type validator interface {
	validate() error
}

// NewRegressor returns an unfitted regressor of the given family.
func NewRegressor(lib string, seed uint64) (Regressor, error) {
	switch lib {
	case LibGradientBoosting:
		return NewGradientBoosting(DefaultEstimators, boostingMaxDepth, boostingLearningRate), nil
	case LibRandomForest:
		return NewRandomForest(DefaultEstimators, forestMaxDepth, seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelLib, lib)
	}
}

// SupportedLibs lists the regressor families NewRegressor accepts.
func SupportedLibs() []string {
	return []string{LibGradientBoosting, LibRandomForest}
}

func checkInput(X *mat.Dense, y []float64) (int, int, error) {
	if X == nil {
		return 0, 0, fmt.Errorf("nil design matrix")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return 0, 0, fmt.Errorf("empty design matrix")
	}
	if y != nil && len(y) != r {
		return 0, 0, fmt.Errorf("got %d targets for %d rows", len(y), r)
	}
	return r, c, nil
}

func rowsOf(X *mat.Dense) [][]float64 {
	r, _ := X.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = X.RawRowView(i)
	}
	return rows
}

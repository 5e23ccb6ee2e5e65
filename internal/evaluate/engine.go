// Package evaluate scores a trained yield model against a labeled holdout
// set and writes the results as text, CSV and JSON reports.
package evaluate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"agri-yield/internal/features"
	"agri-yield/internal/ml"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Row is one scored holdout sample.
type Row struct {
	Crop      string  `json:"crop"`
	Actual    float64 `json:"actual_tons"`
	Predicted float64 `json:"predicted_tons"`
	Residual  float64 `json:"residual"`
}

// Scores summarises the error of a set of predictions.
type Scores struct {
	Count int     `json:"count"`
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
	R2    float64 `json:"r2"`
	Bias  float64 `json:"bias"`
}

// CropScores holds the scores of one crop.
type CropScores struct {
	Crop string `json:"crop"`
	Scores
}

// Results is the outcome of one evaluation.
type Results struct {
	ModelLib     string        `json:"model_lib"`
	ModelVersion string        `json:"model_version"`
	Source       string        `json:"source"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Overall      Scores        `json:"overall"`
	ByCrop       []CropScores  `json:"by_crop"`
	Floored      int           `json:"floored"`
	Rows         []Row         `json:"-"`
	Duration     time.Duration `json:"duration_ns"`
}

// Evaluate predicts every holdout row with art and scores the floored
// outputs against the labels, overall and per crop.
func Evaluate(art *ml.Artifact, ds *Dataset) (*Results, error) {
	if art == nil || art.Model == nil {
		return nil, ml.ErrNoModel
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("empty holdout set")
	}

	results := &Results{
		ModelLib:     art.Meta.ModelLib,
		ModelVersion: art.Meta.Version,
		Source:       ds.Source,
		StartTime:    time.Now(),
	}

	raw, err := art.Model.Predict(ds.X)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrInference, err)
	}

	cropNames := make(map[int]string, len(art.CropMap))
	for name, code := range art.CropMap {
		cropNames[code] = name
	}

	predicted := make([]float64, len(raw))
	byCrop := make(map[string][2][]float64)
	results.Rows = make([]Row, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite output at row %d", ml.ErrInference, i)
		}
		if v < ml.YieldFloor {
			v = ml.YieldFloor
			results.Floored++
		}
		predicted[i] = v

		code := int(ds.X.At(i, features.ColCropCode))
		crop, ok := cropNames[code]
		if !ok {
			crop = fmt.Sprintf("code_%d", code)
		}
		results.Rows[i] = Row{
			Crop:      crop,
			Actual:    ds.Y[i],
			Predicted: v,
			Residual:  v - ds.Y[i],
		}

		pair := byCrop[crop]
		pair[0] = append(pair[0], v)
		pair[1] = append(pair[1], ds.Y[i])
		byCrop[crop] = pair
	}

	results.Overall = score(predicted, ds.Y)
	for crop, pair := range byCrop {
		results.ByCrop = append(results.ByCrop, CropScores{Crop: crop, Scores: score(pair[0], pair[1])})
	}
	sort.Slice(results.ByCrop, func(i, j int) bool {
		ci, iok := art.CropMap[results.ByCrop[i].Crop]
		cj, jok := art.CropMap[results.ByCrop[j].Crop]
		if iok != jok {
			return iok
		}
		if ci != cj {
			return ci < cj
		}
		return results.ByCrop[i].Crop < results.ByCrop[j].Crop
	})

	results.EndTime = time.Now()
	results.Duration = results.EndTime.Sub(results.StartTime)

	log.Info().
		Str("model_lib", results.ModelLib).
		Str("source", results.Source).
		Int("samples", results.Overall.Count).
		Float64("rmse", results.Overall.RMSE).
		Float64("r2", results.Overall.R2).
		Msg("Evaluation completed")

	return results, nil
}

func score(predicted, actual []float64) Scores {
	n := float64(len(actual))
	var sq, abs, sum float64
	for i := range actual {
		d := predicted[i] - actual[i]
		sq += d * d
		abs += math.Abs(d)
		sum += d
	}
	s := Scores{
		Count: len(actual),
		RMSE:  math.Sqrt(sq / n),
		MAE:   abs / n,
		Bias:  sum / n,
	}
	if len(actual) > 1 {
		s.R2 = stat.RSquaredFrom(predicted, actual, nil)
	}
	if math.IsNaN(s.R2) {
		s.R2 = 0
	}
	return s
}

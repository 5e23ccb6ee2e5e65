package storage

import (
	"sort"
	"time"

	"agri-yield/internal/ml"

	"gonum.org/v1/gonum/stat"
)

// RecordTrainingRun stores a training report keyed by model library and
// training time.
func (s *Store) RecordTrainingRun(report ml.TrainingReport) error {
	return s.put(trainingRunsBucket, report.ModelLib, report.TrainedAt, report)
}

// ListTrainingRuns returns every recorded training run, oldest first.
func (s *Store) ListTrainingRuns() ([]ml.TrainingReport, error) {
	runs, err := getAll[ml.TrainingReport](s, trainingRunsBucket)
	if err != nil {
		return nil, err
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].TrainedAt.Before(runs[j].TrainedAt)
	})
	return runs, nil
}

// GetTrainingRuns returns the runs of one model library within a time range.
func (s *Store) GetTrainingRuns(modelLib string, start, end time.Time) ([]ml.TrainingReport, error) {
	return getRecordsInRange[ml.TrainingReport](s, trainingRunsBucket, modelLib, start, end)
}

// CropSummary aggregates the audit log of one crop.
type CropSummary struct {
	Crop           string  `json:"crop"`
	Count          int     `json:"count"`
	MeanYieldTons  float64 `json:"mean_yield_tons"`
	StdYieldTons   float64 `json:"std_yield_tons"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// SummarizePredictions groups the predictions made since the given time by
// crop, sorted by crop name.
func (s *Store) SummarizePredictions(since time.Time) ([]CropSummary, error) {
	events, err := getAll[ml.PredictionEvent](s, predictionsBucket)
	if err != nil {
		return nil, err
	}

	yields := make(map[string][]float64)
	confidences := make(map[string][]float64)
	for _, ev := range events {
		if ev.Timestamp.Before(since) {
			continue
		}
		crop := cropKey(ev.Record.Crop)
		yields[crop] = append(yields[crop], ev.Result.YieldTons)
		confidences[crop] = append(confidences[crop], ev.Result.Confidence)
	}

	summaries := make([]CropSummary, 0, len(yields))
	for crop, ys := range yields {
		sum := CropSummary{
			Crop:           crop,
			Count:          len(ys),
			MeanYieldTons:  stat.Mean(ys, nil),
			MeanConfidence: stat.Mean(confidences[crop], nil),
		}
		if len(ys) > 1 {
			sum.StdYieldTons = stat.StdDev(ys, nil)
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Crop < summaries[j].Crop })
	return summaries, nil
}

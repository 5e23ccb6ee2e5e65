package ml

import (
	"fmt"
	"math"
	"time"

	"agri-yield/internal/dataset"
	"agri-yield/internal/features"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrainerConfig selects the regressor family and the synthetic dataset.
type TrainerConfig struct {
	ModelLib string
	Samples  int
	Seed     uint64
}

// DefaultTrainerConfig returns the gradient boosting setup on 1000 samples
// with seed 42.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		ModelLib: LibGradientBoosting,
		Samples:  dataset.DefaultSamples,
		Seed:     dataset.DefaultSeed,
	}
}

// TrainingReport summarises one training run.
type TrainingReport struct {
	RunID        string        `json:"run_id"`
	Status       string        `json:"status"`
	ModelLib     string        `json:"model_lib"`
	Version      string        `json:"version"`
	Samples      int           `json:"training_samples"`
	Seed         uint64        `json:"seed"`
	TrainRMSE    float64       `json:"train_rmse"`
	TrainR2      float64       `json:"train_r2"`
	Duration     time.Duration `json:"duration_ns"`
	ArtifactPath string        `json:"artifact_path"`
	TrainedAt    time.Time     `json:"trained_at"`
}

// Trainer fits regressors on the synthetic dataset.
type Trainer struct {
	config  TrainerConfig
	metrics MetricsInterface
}

// NewTrainer validates config and returns a trainer. A zero Samples or
// ModelLib takes the default.
func NewTrainer(config TrainerConfig, metrics MetricsInterface) (*Trainer, error) {
	if config.ModelLib == "" {
		config.ModelLib = LibGradientBoosting
	}
	if config.Samples <= 0 {
		config.Samples = dataset.DefaultSamples
	}
	if _, err := NewRegressor(config.ModelLib, config.Seed); err != nil {
		return nil, err
	}
	return &Trainer{config: config, metrics: metricsOrNoop(metrics)}, nil
}

// ModelLib returns the configured regressor family.
func (t *Trainer) ModelLib() string {
	return t.config.ModelLib
}

// Train generates the dataset and fits a fresh regressor in memory.
func (t *Trainer) Train() (*Artifact, error) {
	start := time.Now()

	model, err := NewRegressor(t.config.ModelLib, t.config.Seed)
	if err != nil {
		return nil, err
	}

	X, y := dataset.Generate(t.config.Samples, t.config.Seed)
	if err := model.Fit(X, y); err != nil {
		return nil, fmt.Errorf("fit %s: %w", t.config.ModelLib, err)
	}

	fitted, err := model.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", t.config.ModelLib, err)
	}
	rmse := floats.Distance(fitted, y, 2) / math.Sqrt(float64(len(y)))
	r2 := stat.RSquaredFrom(fitted, y, nil)

	now := time.Now().UTC()
	art := &Artifact{
		Model:   model,
		CropMap: features.DefaultCropEncoding(),
		Meta: ArtifactMeta{
			Version:        now.Format("20060102-150405"),
			ModelLib:       model.Lib(),
			TrainedAt:      now,
			Samples:        len(y),
			Seed:           t.config.Seed,
			TrainRMSE:      rmse,
			TrainR2:        r2,
			FeatureColumns: features.ColumnNames(),
		},
	}

	elapsed := time.Since(start)
	t.metrics.TrainingRunsInc()
	t.metrics.TrainingDurationObserve(elapsed.Seconds())
	t.metrics.TrainRMSESet(rmse)

	log.Info().
		Str("model_lib", art.Meta.ModelLib).
		Int("samples", art.Meta.Samples).
		Uint64("seed", art.Meta.Seed).
		Float64("train_rmse", rmse).
		Float64("train_r2", r2).
		Dur("duration", elapsed).
		Msg("model trained")

	return art, nil
}

// TrainAndSave trains a model and persists it at path, replacing any
// existing artifact. Only I/O failures are returned as errors.
func (t *Trainer) TrainAndSave(path string) (*Artifact, TrainingReport, error) {
	start := time.Now()

	art, err := t.Train()
	if err != nil {
		return nil, TrainingReport{}, err
	}
	if err := SaveArtifact(path, art); err != nil {
		return nil, TrainingReport{}, err
	}

	log.Info().Str("path", path).Str("version", art.Meta.Version).Msg("model artifact saved")

	return art, TrainingReport{
		RunID:        uuid.NewString(),
		Status:       "trained",
		ModelLib:     art.Meta.ModelLib,
		Version:      art.Meta.Version,
		Samples:      art.Meta.Samples,
		Seed:         art.Meta.Seed,
		TrainRMSE:    art.Meta.TrainRMSE,
		TrainR2:      art.Meta.TrainR2,
		Duration:     time.Since(start),
		ArtifactPath: path,
		TrainedAt:    art.Meta.TrainedAt,
	}, nil
}

package ml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// RunRecorder receives a report after every successful training run.
type RunRecorder interface {
	RecordTrainingRun(report TrainingReport) error
}

// ModelManager owns the active model artifact. Readers call Current and
// never block; Retrain and Reload are serialized and publish a new artifact
// with a single atomic store once it is fully built and persisted.
type ModelManager struct {
	path      string
	trainer   *Trainer
	metrics   MetricsInterface
	current   atomic.Pointer[Artifact]
	mu        sync.Mutex
	recorders []RunRecorder
}

// NewModelManager creates a manager for the artifact at path. Nothing is
// loaded until LoadOrTrain is called.
func NewModelManager(path string, trainer *Trainer, metrics MetricsInterface) *ModelManager {
	return &ModelManager{
		path:    path,
		trainer: trainer,
		metrics: metricsOrNoop(metrics),
	}
}

// AddRunRecorder registers r to be told about future training runs.
func (mm *ModelManager) AddRunRecorder(r RunRecorder) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.recorders = append(mm.recorders, r)
}

// Path returns the artifact location.
func (mm *ModelManager) Path() string {
	return mm.path
}

// LoadOrTrain loads the artifact at the configured path, training and
// saving one first if none exists. A corrupt artifact is returned as an
// error and nothing is published.
func (mm *ModelManager) LoadOrTrain() (*Artifact, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, err := os.Stat(mm.path); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("model_path", mm.path).Msg("model not found; training a new one")
		art, _, err := mm.retrainLocked()
		return art, err
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat artifact: %w", ErrStorage, err)
	}

	art, err := LoadArtifact(mm.path)
	if err != nil {
		return nil, err
	}
	if art.Meta.ModelLib != mm.trainer.ModelLib() {
		log.Info().
			Str("artifact_lib", art.Meta.ModelLib).
			Str("configured_lib", mm.trainer.ModelLib()).
			Msg("serving persisted model; configured library applies to the next retrain")
	}
	mm.publish(art)
	log.Info().
		Str("model_path", mm.path).
		Str("model_lib", art.Meta.ModelLib).
		Str("version", art.Meta.Version).
		Msg("model loaded")
	return art, nil
}

// Retrain trains a new model, persists it and then swaps it in. On failure
// the previously active model stays in place.
func (mm *ModelManager) Retrain() (TrainingReport, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	_, report, err := mm.retrainLocked()
	return report, err
}

func (mm *ModelManager) retrainLocked() (*Artifact, TrainingReport, error) {
	art, report, err := mm.trainer.TrainAndSave(mm.path)
	if err != nil {
		return nil, TrainingReport{}, err
	}
	mm.publish(art)

	for _, r := range mm.recorders {
		if err := r.RecordTrainingRun(report); err != nil {
			log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to record training run")
		}
	}
	return art, report, nil
}

// Reload re-reads the artifact from disk and swaps it in, picking up a
// model written by another process.
func (mm *ModelManager) Reload() (*Artifact, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	art, err := LoadArtifact(mm.path)
	if err != nil {
		return nil, err
	}
	mm.publish(art)
	log.Info().Str("version", art.Meta.Version).Msg("model reloaded")
	return art, nil
}

func (mm *ModelManager) publish(art *Artifact) {
	mm.current.Store(art)
	mm.metrics.ModelAgeSet(time.Since(art.Meta.TrainedAt).Seconds())
}

// Current returns the active artifact, or nil before the first load.
func (mm *ModelManager) Current() *Artifact {
	return mm.current.Load()
}

// ModelLib reports the family of the active model, falling back to the
// configured family when nothing is loaded.
func (mm *ModelManager) ModelLib() string {
	if art := mm.current.Load(); art != nil {
		return art.Meta.ModelLib
	}
	return mm.trainer.ModelLib()
}

// ModelAge returns how long ago the active model was trained.
func (mm *ModelManager) ModelAge() time.Duration {
	art := mm.current.Load()
	if art == nil {
		return 0
	}
	age := time.Since(art.Meta.TrainedAt)
	mm.metrics.ModelAgeSet(age.Seconds())
	return age
}

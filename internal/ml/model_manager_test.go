package ml

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runCapture struct {
	mu      sync.Mutex
	reports []TrainingReport
}

func (r *runCapture) RecordTrainingRun(report TrainingReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func newTestManager(t *testing.T, path, lib string, metrics MetricsInterface) *ModelManager {
	t.Helper()
	trainer, err := NewTrainer(TrainerConfig{ModelLib: lib, Samples: 200, Seed: 42}, metrics)
	require.NoError(t, err)
	return NewModelManager(path, trainer, metrics)
}

func TestModelManager_TrainsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "agri_yield_model.json")
	metrics := &MockMetrics{}
	mm := newTestManager(t, path, LibGradientBoosting, metrics)

	assert.Nil(t, mm.Current())
	assert.Equal(t, LibGradientBoosting, mm.ModelLib())

	art, err := mm.LoadOrTrain()
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Same(t, art, mm.Current())
	assert.Equal(t, 1, metrics.TrainingRuns())

	_, err = os.Stat(path)
	assert.NoError(t, err, "artifact should be persisted")
}

func TestModelManager_LoadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	first := newTestManager(t, path, LibRandomForest, nil)
	trained, err := first.LoadOrTrain()
	require.NoError(t, err)

	metrics := &MockMetrics{}
	second := newTestManager(t, path, LibGradientBoosting, metrics)
	loaded, err := second.LoadOrTrain()
	require.NoError(t, err)

	assert.Equal(t, 0, metrics.TrainingRuns(), "existing artifact must not be retrained")
	assert.Equal(t, trained.Meta.Version, loaded.Meta.Version)
	assert.Equal(t, LibRandomForest, second.ModelLib(), "active lib comes from the artifact")
}

func TestModelManager_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	mm := newTestManager(t, path, LibGradientBoosting, nil)
	_, err := mm.LoadOrTrain()
	assert.ErrorIs(t, err, ErrCorruptArtifact)
	assert.Nil(t, mm.Current())
}

func TestModelManager_RestartReproducible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	mm := newTestManager(t, path, LibGradientBoosting, nil)
	_, err := mm.LoadOrTrain()
	require.NoError(t, err)
	before, err := NewYieldPredictor(mm, nil).Predict(wheatRecord())
	require.NoError(t, err)

	restarted := newTestManager(t, path, LibGradientBoosting, nil)
	_, err = restarted.LoadOrTrain()
	require.NoError(t, err)
	after, err := NewYieldPredictor(restarted, nil).Predict(wheatRecord())
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestModelManager_RetrainSwapsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	mm := newTestManager(t, path, LibGradientBoosting, nil)
	runs := &runCapture{}
	mm.AddRunRecorder(runs)

	old, err := mm.LoadOrTrain()
	require.NoError(t, err)

	report, err := mm.Retrain()
	require.NoError(t, err)
	assert.Equal(t, "trained", report.Status)
	assert.Equal(t, LibGradientBoosting, report.ModelLib)
	assert.Equal(t, path, report.ArtifactPath)
	assert.NotEmpty(t, report.RunID)

	assert.NotSame(t, old, mm.Current())
	require.Len(t, runs.reports, 2)
	assert.Equal(t, report.RunID, runs.reports[1].RunID)

	onDisk, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.True(t, onDisk.Meta.TrainedAt.Equal(mm.Current().Meta.TrainedAt))
}

func TestModelManager_RetrainFailureKeepsModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	mm := newTestManager(t, path, LibGradientBoosting, nil)
	old, err := mm.LoadOrTrain()
	require.NoError(t, err)

	// A directory at the artifact path makes the rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	_, err = mm.Retrain()
	assert.ErrorIs(t, err, ErrStorage)
	assert.Same(t, old, mm.Current())
}

func TestModelManager_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	mm := newTestManager(t, path, LibGradientBoosting, nil)
	_, err := mm.LoadOrTrain()
	require.NoError(t, err)

	other := newTestManager(t, path, LibRandomForest, nil)
	_, err = other.Retrain()
	require.NoError(t, err)

	art, err := mm.Reload()
	require.NoError(t, err)
	assert.Equal(t, LibRandomForest, art.Meta.ModelLib)
	assert.Equal(t, LibRandomForest, mm.ModelLib())
}

func TestModelManager_PredictDuringRetrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	mm := newTestManager(t, path, LibGradientBoosting, nil)
	_, err := mm.LoadOrTrain()
	require.NoError(t, err)
	p := NewYieldPredictor(mm, nil)

	done := make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := p.Predict(wheatRecord()); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for i := 0; i < 2; i++ {
		_, err := mm.Retrain()
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestModelManager_ModelAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	mm := newTestManager(t, path, LibGradientBoosting, nil)
	assert.Zero(t, mm.ModelAge())

	_, err := mm.LoadOrTrain()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mm.ModelAge().Seconds(), 0.0)
}

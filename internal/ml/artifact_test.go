package ml

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"agri-yield/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifact_RoundTrip(t *testing.T) {
	X, _ := dataset.Generate(50, 7)

	for _, lib := range SupportedLibs() {
		t.Run(lib, func(t *testing.T) {
			art := trainedArtifact(t, lib)
			path := filepath.Join(t.TempDir(), "models", "nested", "model.json")

			require.NoError(t, SaveArtifact(path, art))
			loaded, err := LoadArtifact(path)
			require.NoError(t, err)

			assert.Equal(t, art.CropMap, loaded.CropMap)
			assert.Equal(t, art.Meta.ModelLib, loaded.Meta.ModelLib)
			assert.Equal(t, art.Meta.Version, loaded.Meta.Version)
			assert.Equal(t, art.Meta.FeatureColumns, loaded.Meta.FeatureColumns)
			assert.True(t, art.Meta.TrainedAt.Equal(loaded.Meta.TrainedAt))

			want, err := art.Model.Predict(X)
			require.NoError(t, err)
			got, err := loaded.Model.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestArtifact_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	art := trainedArtifact(t, LibGradientBoosting)

	require.NoError(t, SaveArtifact(path, art))
	require.NoError(t, SaveArtifact(path, art))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.json", entries[0].Name())
}

func TestArtifact_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	require.NoError(t, SaveArtifact(path, trainedArtifact(t, LibGradientBoosting)))
	require.NoError(t, SaveArtifact(path, trainedArtifact(t, LibRandomForest)))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, LibRandomForest, loaded.Meta.ModelLib)
	assert.IsType(t, &RandomForest{}, loaded.Model)
}

func TestLoadArtifact_Missing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadArtifact_Corrupt(t *testing.T) {
	art := trainedArtifact(t, LibGradientBoosting)
	goodPath := filepath.Join(t.TempDir(), "good.json")
	require.NoError(t, SaveArtifact(goodPath, art))
	good, err := os.ReadFile(goodPath)
	require.NoError(t, err)

	mutate := func(fn func(m map[string]any)) []byte {
		var m map[string]any
		require.NoError(t, json.Unmarshal(good, &m))
		fn(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return out
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("not json at all")},
		{"truncated", good[:len(good)/2]},
		{"format version", mutate(func(m map[string]any) { m["format_version"] = 99 })},
		{"column mismatch", mutate(func(m map[string]any) {
			m["meta"].(map[string]any)["feature_columns"] = []string{"area_ha", "crop_code"}
		})},
		{"empty crop map", mutate(func(m map[string]any) { m["crop_map"] = map[string]int{} })},
		{"unknown lib", mutate(func(m map[string]any) { m["meta"].(map[string]any)["model_lib"] = "svm" })},
		{"no trees", mutate(func(m map[string]any) { m["model"].(map[string]any)["trees"] = []any{} })},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.json")
			require.NoError(t, os.WriteFile(path, tc.data, 0o644))

			_, err := LoadArtifact(path)
			assert.ErrorIs(t, err, ErrCorruptArtifact)
			assert.NotErrorIs(t, err, ErrStorage)
		})
	}
}

func TestSaveArtifact_UnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := SaveArtifact(filepath.Join(blocker, "model.json"), trainedArtifact(t, LibGradientBoosting))
	assert.ErrorIs(t, err, ErrStorage)
}

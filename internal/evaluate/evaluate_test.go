package evaluate

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agri-yield/internal/features"
	"agri-yield/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// constRegressor returns the same value for every row.
type constRegressor struct {
	value float64
}

func (c constRegressor) Fit(*mat.Dense, []float64) error { return nil }
func (c constRegressor) Lib() string                     { return "const" }
func (c constRegressor) Predict(X *mat.Dense) ([]float64, error) {
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = c.value
	}
	return out, nil
}

func constArtifact(v float64) *ml.Artifact {
	return &ml.Artifact{
		Model:   constRegressor{value: v},
		CropMap: features.DefaultCropEncoding(),
		Meta:    ml.ArtifactMeta{ModelLib: "const", Version: "test"},
	}
}

func trainedArtifact(t *testing.T, lib string) *ml.Artifact {
	t.Helper()
	trainer, err := ml.NewTrainer(ml.TrainerConfig{ModelLib: lib, Samples: 300, Seed: 42}, nil)
	require.NoError(t, err)
	art, err := trainer.Train()
	require.NoError(t, err)
	return art
}

func TestEvaluateTrainedModels(t *testing.T) {
	for _, lib := range []string{ml.LibGradientBoosting, ml.LibRandomForest} {
		t.Run(lib, func(t *testing.T) {
			art := trainedArtifact(t, lib)
			results, err := Evaluate(art, Synthetic(400, 7))
			require.NoError(t, err)

			assert.Equal(t, lib, results.ModelLib)
			assert.Equal(t, 400, results.Overall.Count)
			assert.Len(t, results.Rows, 400)
			assert.Greater(t, results.Overall.R2, 0.5)
			assert.Less(t, results.Overall.RMSE, 1.5)
			assert.LessOrEqual(t, results.Overall.MAE, results.Overall.RMSE)

			total := 0
			for _, c := range results.ByCrop {
				total += c.Count
			}
			assert.Equal(t, 400, total)
			require.Len(t, results.ByCrop, 4)
			assert.Equal(t, "wheat", results.ByCrop[0].Crop)
			assert.Equal(t, "cotton", results.ByCrop[3].Crop)
		})
	}
}

func TestEvaluateAppliesYieldFloor(t *testing.T) {
	results, err := Evaluate(constArtifact(-1), Synthetic(50, 3))
	require.NoError(t, err)

	assert.Equal(t, 50, results.Floored)
	for _, row := range results.Rows {
		assert.Equal(t, ml.YieldFloor, row.Predicted)
		assert.InDelta(t, row.Predicted-row.Actual, row.Residual, 1e-12)
	}
	assert.Less(t, results.Overall.Bias, 0.0)
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(nil, Synthetic(10, 1))
	assert.ErrorIs(t, err, ml.ErrNoModel)

	_, err = Evaluate(constArtifact(1), &Dataset{})
	assert.Error(t, err)

	_, err = Evaluate(constArtifact(math.NaN()), Synthetic(10, 1))
	assert.ErrorIs(t, err, ml.ErrInference)

	_, err = Evaluate(constArtifact(math.Inf(1)), Synthetic(10, 1))
	assert.ErrorIs(t, err, ml.ErrInference)
}

func TestScore(t *testing.T) {
	s := score([]float64{2, 4, 6}, []float64{1, 4, 7})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.RMSE, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.MAE, 1e-12)
	assert.InDelta(t, 0.0, s.Bias, 1e-12)
	assert.InDelta(t, 1-2.0/18.0, s.R2, 1e-12)

	single := score([]float64{2}, []float64{1})
	assert.Equal(t, 0.0, single.R2)
}

const validCSV = `area_ha,soil_ph,soil_moisture_pct,organic_matter_pct,avg_temp_c,rainfall_mm,crop_code,yield_tons
1.2,6.5,30,2.0,25,50,0,3.1
2.0,6.0,20,1.5,27,80,2,3.4
`

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(validCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []float64{3.1, 3.4}, ds.Y)
	assert.Equal(t, 2.0, ds.X.At(1, features.ColCropCode))
	assert.Equal(t, 20.0, ds.X.At(1, features.ColSoilMoisture))
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong header", strings.Replace(validCSV, "soil_ph", "ph", 1)},
		{"missing target", strings.Replace(validCSV, "yield_tons", "yield", 1)},
		{"no rows", strings.SplitN(validCSV, "\n", 2)[0] + "\n"},
		{"bad number", strings.Replace(validCSV, "3.1", "abc", 1)},
		{"short row", validCSV + "1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdout.csv")
	require.NoError(t, os.WriteFile(path, []byte(validCSV), 0644))

	ds, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 2, ds.Len())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestReporterGenerateReport(t *testing.T) {
	results, err := Evaluate(trainedArtifact(t, ml.LibGradientBoosting), Synthetic(100, 9))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, NewReporter(results, dir).GenerateReport())

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "MODEL EVALUATION SUMMARY")
	assert.Contains(t, string(summary), "wheat:")

	csvData, err := os.ReadFile(filepath.Join(dir, PredictionsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	assert.Len(t, lines, 101)
	assert.Equal(t, "Crop,Actual,Predicted,Residual", lines[0])

	jsonData, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, ml.LibGradientBoosting, decoded["model_lib"])
	assert.Contains(t, decoded, "generated_at")
	assert.Len(t, decoded["by_crop"], 4)
}

func TestWriteCSVIsReadable(t *testing.T) {
	original := Synthetic(25, 11)

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, original))

	decoded, err := ReadCSV(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, original.Y, decoded.Y)
	assert.True(t, mat.Equal(original.X, decoded.X))
}

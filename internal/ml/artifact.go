package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"agri-yield/internal/features"
)

const artifactFormatVersion = 1

// ArtifactMeta describes how a persisted model was produced.
type ArtifactMeta struct {
	Version        string    `json:"version"`
	ModelLib       string    `json:"model_lib"`
	TrainedAt      time.Time `json:"trained_at"`
	Samples        int       `json:"training_samples"`
	Seed           uint64    `json:"seed"`
	TrainRMSE      float64   `json:"train_rmse"`
	TrainR2        float64   `json:"train_r2"`
	FeatureColumns []string  `json:"feature_columns"`
}

// Artifact is a trained model together with the crop encoding it was
// trained under. It is never mutated after creation.
type Artifact struct {
	Model   Regressor
	CropMap features.CropEncoding
	Meta    ArtifactMeta
}

type artifactFile struct {
	FormatVersion int                   `json:"format_version"`
	Meta          ArtifactMeta          `json:"meta"`
	CropMap       features.CropEncoding `json:"crop_map"`
	Model         json.RawMessage       `json:"model"`
}

// SaveArtifact writes a to path, creating parent directories. The file is
// written to a temporary sibling and renamed into place, so readers never
// observe a partial artifact.
func SaveArtifact(path string, a *Artifact) error {
	model, err := json.Marshal(a.Model)
	if err != nil {
		return fmt.Errorf("%w: encode model: %w", ErrStorage, err)
	}
	data, err := json.Marshal(artifactFile{
		FormatVersion: artifactFormatVersion,
		Meta:          a.Meta,
		CropMap:       a.CropMap,
		Model:         model,
	})
	if err != nil {
		return fmt.Errorf("%w: encode artifact: %w", ErrStorage, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create model dir: %w", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp artifact: %w", ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write artifact: %w", ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync artifact: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close artifact: %w", ErrStorage, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace artifact: %w", ErrStorage, err)
	}
	return nil
}

// LoadArtifact reads and validates the artifact at path. A missing file
// matches fs.ErrNotExist; undecodable or schema-incompatible content
// matches ErrCorruptArtifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact: %w", ErrStorage, err)
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArtifact, path, err)
	}
	if file.FormatVersion != artifactFormatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported format version %d", ErrCorruptArtifact, path, file.FormatVersion)
	}
	if !features.SameColumns(file.Meta.FeatureColumns) {
		return nil, fmt.Errorf("%w: %s: feature columns %v do not match %v",
			ErrCorruptArtifact, path, file.Meta.FeatureColumns, features.ColumnNames())
	}
	if len(file.CropMap) == 0 {
		return nil, fmt.Errorf("%w: %s: empty crop map", ErrCorruptArtifact, path)
	}

	model, err := NewRegressor(file.Meta.ModelLib, file.Meta.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArtifact, path, err)
	}
	if err := json.Unmarshal(file.Model, model); err != nil {
		return nil, fmt.Errorf("%w: %s: decode model: %w", ErrCorruptArtifact, path, err)
	}
	if v, ok := model.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptArtifact, path, err)
		}
	}

	return &Artifact{
		Model:   model,
		CropMap: file.CropMap,
		Meta:    file.Meta,
	}, nil
}

package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"agri-yield/internal/dataset"
	"agri-yield/internal/features"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// TargetColumn is the label column expected after the feature columns in a
// holdout CSV file.
const TargetColumn = "yield_tons"

// Dataset is a labeled set of feature rows ordered by features.Columns.
type Dataset struct {
	Source string
	X      *mat.Dense
	Y      []float64
}

// Len returns the number of labeled rows.
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Synthetic draws a holdout set from the synthetic generator. Use a seed
// different from the training seed, otherwise the holdout repeats the
// training rows.
func Synthetic(n int, seed uint64) *Dataset {
	X, y := dataset.Generate(n, seed)
	return &Dataset{
		Source: fmt.Sprintf("synthetic(n=%d, seed=%d)", len(y), seed),
		X:      X,
		Y:      y,
	}
}

// LoadCSV reads a labeled holdout file. The header must list the feature
// columns in order followed by yield_tons.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holdout file: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Source = path

	log.Info().Str("file", path).Int("rows", ds.Len()).Msg("Loaded holdout data from CSV")
	return ds, nil
}

// ReadCSV parses a labeled holdout table from r.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = features.NumFeatures + 1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !features.SameColumns(header[:features.NumFeatures]) || header[features.NumFeatures] != TargetColumn {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var (
		values []float64
		y      []float64
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			row[i] = v
		}
		values = append(values, row[:features.NumFeatures]...)
		y = append(y, row[features.NumFeatures])
	}

	if len(y) == 0 {
		return nil, errors.New("no data rows")
	}

	return &Dataset{
		X: mat.NewDense(len(y), features.NumFeatures, values),
		Y: y,
	}, nil
}

// WriteCSV writes ds in the format ReadCSV accepts.
func WriteCSV(w io.Writer, ds *Dataset) error {
	writer := csv.NewWriter(w)

	header := append(features.ColumnNames(), TargetColumn)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, features.NumFeatures+1)
	for i := 0; i < ds.Len(); i++ {
		for j := 0; j < features.NumFeatures; j++ {
			record[j] = strconv.FormatFloat(ds.X.At(i, j), 'g', -1, 64)
		}
		record[features.NumFeatures] = strconv.FormatFloat(ds.Y[i], 'g', -1, 64)
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

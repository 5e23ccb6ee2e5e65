package evaluate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Report file names written by GenerateReport.
const (
	SummaryFile     = "evaluation_summary.txt"
	PredictionsFile = "holdout_predictions.csv"
	JSONFile        = "evaluation_results.json"
)

// Reporter writes evaluation reports.
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a reporter writing into outputPath.
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes every report format.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	if err := r.generatePredictionLog(); err != nil {
		return err
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}

	return nil
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	res := r.results

	fmt.Fprintf(w, "MODEL EVALUATION SUMMARY\n")
	fmt.Fprintf(w, "========================\n\n")

	fmt.Fprintf(w, "Model: %s (version %s)\n", res.ModelLib, res.ModelVersion)
	fmt.Fprintf(w, "Holdout: %s\n", res.Source)
	fmt.Fprintf(w, "Evaluated at: %s\n\n", res.StartTime.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "OVERALL\n")
	fmt.Fprintf(w, "-------\n")
	fmt.Fprintf(w, "Samples: %d\n", res.Overall.Count)
	fmt.Fprintf(w, "RMSE: %.4f t\n", res.Overall.RMSE)
	fmt.Fprintf(w, "MAE: %.4f t\n", res.Overall.MAE)
	fmt.Fprintf(w, "Bias: %+.4f t\n", res.Overall.Bias)
	fmt.Fprintf(w, "R2: %.4f\n", res.Overall.R2)
	fmt.Fprintf(w, "Floored outputs: %d\n", res.Floored)

	if len(res.ByCrop) > 0 {
		fmt.Fprintf(w, "\nBY CROP\n")
		fmt.Fprintf(w, "-------\n")
		for _, c := range res.ByCrop {
			fmt.Fprintf(w, "%s: %d samples, RMSE %.4f, MAE %.4f, R2 %.4f\n",
				c.Crop, c.Count, c.RMSE, c.MAE, c.R2)
		}
	}
}

func (r *Reporter) generatePredictionLog() error {
	csvPath := filepath.Join(r.outputPath, PredictionsFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create prediction log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Crop", "Actual", "Predicted", "Residual"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range r.results.Rows {
		record := []string{
			row.Crop,
			fmt.Sprintf("%.4f", row.Actual),
			fmt.Sprintf("%.4f", row.Predicted),
			fmt.Sprintf("%.4f", row.Residual),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write prediction log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Prediction log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	report := struct {
		*Results
		GeneratedAt time.Time `json:"generated_at"`
	}{
		Results:     r.results,
		GeneratedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints the summary to stdout.
func (r *Reporter) PrintSummary() {
	fmt.Println()
	r.writeSummary(os.Stdout)
	fmt.Println("========================")
}

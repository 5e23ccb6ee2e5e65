package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"time"

	"agri-yield/internal/common"
	"agri-yield/internal/evaluate"
	"agri-yield/internal/ml"
	"agri-yield/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		source     = flag.String("source", "synthetic", "What to export: synthetic or predictions")
		outputPath = flag.String("output", "", "Output file path (stdout when empty)")
		samples    = flag.Int("samples", common.DefaultTrainingSamples, "Synthetic samples to generate")
		seed       = flag.Uint64("seed", common.DefaultTrainingSeed+1, "Seed for the synthetic samples")
		dataPath   = flag.String("data", "./data", "Data directory holding the prediction audit log")
		crop       = flag.String("crop", "", "Crop to export predictions for (empty for all)")
		days       = flag.Int("days", 30, "Number of days of predictions to export (0 for all)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var out io.Writer = os.Stdout
	if *outputPath != "" {
		file, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer file.Close()
		out = file
	}

	switch *source {
	case "synthetic":
		ds := evaluate.Synthetic(*samples, *seed)
		if err := evaluate.WriteCSV(out, ds); err != nil {
			log.Fatal().Err(err).Msg("Failed to write CSV")
		}
		log.Info().Int("rows", ds.Len()).Str("source", ds.Source).Msg("Exported synthetic dataset")

	case "predictions":
		events, err := loadPredictions(*dataPath, *crop, *days)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read predictions")
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			log.Fatal().Err(err).Msg("Failed to write JSON")
		}
		log.Info().Int("records", len(events)).Msg("Exported predictions")

	default:
		log.Fatal().Str("source", *source).Msg("Unknown source, use synthetic or predictions")
	}
}

func loadPredictions(dataPath, crop string, days int) ([]ml.PredictionEvent, error) {
	store, err := storage.New(dataPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	end := time.Now()
	start := time.Unix(0, 0)
	if days > 0 {
		start = end.AddDate(0, 0, -days)
	}

	if crop != "" {
		return store.GetPredictions(crop, start, end)
	}

	events, err := store.RecentPredictions(0)
	if err != nil {
		return nil, err
	}
	filtered := events[:0]
	for _, ev := range events {
		if !ev.Timestamp.Before(start) {
			filtered = append(filtered, ev)
		}
	}
	return filtered, nil
}

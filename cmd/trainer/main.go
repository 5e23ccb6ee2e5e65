package main

import (
	"flag"
	"fmt"
	"os"

	"agri-yield/internal/common"
	"agri-yield/internal/evaluate"
	"agri-yield/internal/ml"
	"agri-yield/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line arguments
	var (
		outPath  = flag.String("out", common.DefaultModelPath, "Path of the model artifact to write")
		modelLib = flag.String("lib", common.DefaultModelLib, "Regressor family: gradient_boosting or random_forest")
		samples  = flag.Int("samples", common.DefaultTrainingSamples, "Number of synthetic training samples")
		seed     = flag.Uint64("seed", common.DefaultTrainingSeed, "Seed for the synthetic dataset and bootstrap sampling")
		dataPath = flag.String("data", "", "Optional data directory to record the training run in")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")

		evalSamples = flag.Int("eval-samples", 0, "Score the model on this many synthetic holdout samples (0 disables)")
		evalSeed    = flag.Uint64("eval-seed", common.DefaultTrainingSeed+1, "Seed for the synthetic holdout set")
		holdoutPath = flag.String("holdout", "", "Score the model on a labeled CSV file instead of synthetic data")
		reportPath  = flag.String("report", "", "Directory to write evaluation reports to")
	)
	flag.Parse()

	// Setup logging
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	trainer, err := ml.NewTrainer(ml.TrainerConfig{
		ModelLib: *modelLib,
		Samples:  *samples,
		Seed:     *seed,
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid trainer configuration")
	}

	art, report, err := trainer.TrainAndSave(*outPath)
	if err != nil {
		log.Fatal().Err(err).Str("out", *outPath).Msg("training failed")
	}

	if *dataPath != "" {
		store, err := storage.New(*dataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open data store")
		}
		defer store.Close()
		if err := store.RecordTrainingRun(report); err != nil {
			log.Error().Err(err).Msg("failed to record training run")
		}
	}

	fmt.Println("=== Training Report ===")
	fmt.Printf("Run ID:     %s\n", report.RunID)
	fmt.Printf("Model lib:  %s\n", report.ModelLib)
	fmt.Printf("Version:    %s\n", report.Version)
	fmt.Printf("Samples:    %d (seed %d)\n", report.Samples, report.Seed)
	fmt.Printf("Train RMSE: %.4f\n", report.TrainRMSE)
	fmt.Printf("Train R2:   %.4f\n", report.TrainR2)
	fmt.Printf("Duration:   %s\n", report.Duration)
	fmt.Printf("Artifact:   %s\n", report.ArtifactPath)
	fmt.Println("=======================")

	if *holdoutPath == "" && *evalSamples <= 0 {
		return
	}

	var holdout *evaluate.Dataset
	if *holdoutPath != "" {
		holdout, err = evaluate.LoadCSV(*holdoutPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load holdout data")
		}
	} else {
		if *evalSeed == *seed {
			log.Warn().Uint64("seed", *seed).Msg("holdout seed equals training seed, scores will be optimistic")
		}
		holdout = evaluate.Synthetic(*evalSamples, *evalSeed)
	}

	results, err := evaluate.Evaluate(art, holdout)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}

	reporter := evaluate.NewReporter(results, *reportPath)
	reporter.PrintSummary()
	if *reportPath != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Fatal().Err(err).Msg("failed to write evaluation report")
		}
	}
}

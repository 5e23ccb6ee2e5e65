package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"agri-yield/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Data directory path")
		limit    = flag.Int("limit", 10, "Number of recent predictions to show")
		days     = flag.Int("days", 7, "Summarise predictions from the last N days (0 for all)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Printf("Inspecting data in: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	runs, err := store.ListTrainingRuns()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list training runs")
	}
	fmt.Printf("\nTraining runs: %d\n", len(runs))
	for _, run := range runs {
		fmt.Printf("  %s  %-17s  version %s  samples %d  rmse %.4f  r2 %.4f\n",
			run.TrainedAt.Format(time.RFC3339), run.ModelLib, run.Version,
			run.Samples, run.TrainRMSE, run.TrainR2)
	}

	since := time.Time{}
	if *days > 0 {
		since = time.Now().AddDate(0, 0, -*days)
	}
	summaries, err := store.SummarizePredictions(since)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to summarise predictions")
	}
	fmt.Printf("\nPredictions by crop:\n")
	if len(summaries) == 0 {
		fmt.Println("  none")
	}
	for _, s := range summaries {
		fmt.Printf("  %-8s count %5d  mean %.3f t  std %.3f t  confidence %.3f\n",
			s.Crop, s.Count, s.MeanYieldTons, s.StdYieldTons, s.MeanConfidence)
	}

	recent, err := store.RecentPredictions(*limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch recent predictions")
	}
	fmt.Printf("\nMost recent predictions:\n")
	for _, ev := range recent {
		fmt.Printf("  %s  %-8s  %.2f ha  yield %.3f t  confidence %.3f  (%s)\n",
			ev.Timestamp.Format(time.RFC3339), ev.Record.Crop, ev.Record.AreaHa,
			ev.Result.YieldTons, ev.Result.Confidence, ev.ModelLib)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"agri-yield/internal/client"
	"agri-yield/internal/common"
	"agri-yield/internal/features"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: yieldctl [-url URL] [-timeout D] <command> [flags]

commands:
  predict      request a yield prediction
  train        retrain the served model
  reload       reload the model artifact from disk
  health       service health
  model        active model metadata
  weather      mocked weather outlook
  soil         mocked soil readings
  predictions  recent predictions from the audit log
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	defaultURL := os.Getenv(common.EnvAPIURL)
	if defaultURL == "" {
		defaultURL = common.DefaultAPIURL
	}
	baseURL := flag.String("url", defaultURL, "Base URL of the agri-yield service")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*baseURL, *timeout)
	ctx := context.Background()
	args := flag.Args()[1:]

	var (
		out any
		err error
	)
	switch flag.Arg(0) {
	case "predict":
		var rec features.FeatureRecord
		rec, err = parsePredictFlags(args)
		if err == nil {
			out, err = c.Predict(ctx, rec)
		}
	case "train":
		out, err = c.Train(ctx)
	case "reload":
		out, err = c.Reload(ctx)
	case "health":
		out, err = c.Health(ctx)
	case "model":
		out, err = c.ModelInfo(ctx)
	case "weather":
		fs := flag.NewFlagSet("weather", flag.ExitOnError)
		lat := fs.Float64("lat", 0, "Latitude")
		lon := fs.Float64("lon", 0, "Longitude")
		fs.Parse(args)
		var latP, lonP *float64
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "lat":
				latP = lat
			case "lon":
				lonP = lon
			}
		})
		out, err = c.Weather(ctx, latP, lonP)
	case "soil":
		fs := flag.NewFlagSet("soil", flag.ExitOnError)
		plot := fs.String("plot", "", "Plot identifier")
		fs.Parse(args)
		out, err = c.Soil(ctx, *plot)
	case "predictions":
		fs := flag.NewFlagSet("predictions", flag.ExitOnError)
		crop := fs.String("crop", "", "Only show this crop")
		limit := fs.Int("limit", 20, "Maximum number of predictions")
		fs.Parse(args)
		out, err = c.Predictions(ctx, *crop, *limit)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, features.ErrUnsupportedCrop) {
			log.Error().Err(err).Msg("crop not supported by the served model")
			os.Exit(3)
		}
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("request failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("failed to write output")
	}
}

func parsePredictFlags(args []string) (features.FeatureRecord, error) {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	crop := fs.String("crop", "", "Crop name (wheat, rice, maize, cotton)")
	area := fs.Float64("area", 0, "Field area in hectares")
	ph := fs.Float64("ph", 0, "Soil pH")
	moisture := fs.Float64("moisture", 0, "Soil moisture percent")
	organic := fs.Float64("organic", 0, "Organic matter percent")
	temp := fs.Float64("temp", features.DefaultAvgTempC, "Average temperature in Celsius")
	rain := fs.Float64("rain", features.DefaultRainfallMM, "Rainfall over the last 30 days in mm")
	if err := fs.Parse(args); err != nil {
		return features.FeatureRecord{}, err
	}

	rec := features.FeatureRecord{
		Crop:             *crop,
		AreaHa:           *area,
		SoilPH:           *ph,
		SoilMoisturePct:  *moisture,
		OrganicMatterPct: *organic,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "temp":
			rec.AvgTempC = temp
		case "rain":
			rec.RainfallLast30dMM = rain
		}
	})

	if rec.Crop == "" {
		return rec, errors.New("-crop is required")
	}
	return rec, nil
}

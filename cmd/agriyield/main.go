package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agri-yield/internal/api"
	"agri-yield/internal/cfg"
	"agri-yield/internal/common"
	"agri-yield/internal/dashboard"
	"agri-yield/internal/metrics"
	"agri-yield/internal/ml"
	"agri-yield/internal/providers"
	"agri-yield/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	zerolog.SetGlobalLevel(c.ZerologLevel())

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize components
	var (
		m        *metrics.Metrics
		mw       ml.MetricsInterface
		gatherer prometheus.Gatherer
	)
	if c.MetricsEnabled {
		m = metrics.New()
		mw = metrics.NewWrapper(m)
		gatherer = prometheus.DefaultGatherer
	}

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	models := initializeModel(c, mw, store)

	recorders := []ml.PredictionRecorder{}
	var audit api.AuditLog
	if store != nil {
		recorders = append(recorders, store)
		audit = store
	}

	var dash *dashboard.Dashboard
	if c.DashboardEnabled {
		dash = dashboard.New(models, c.DashboardInterval)
		recorders = append(recorders, dash)
	}

	predictor := ml.NewYieldPredictor(models, mw, recorders...)

	server := api.NewServer(api.Deps{
		Predictor: predictor,
		Models:    models,
		Weather:   providers.MockWeather{},
		Soil:      providers.MockSoil{},
		Audit:     audit,
		Metrics:   m,
		Gatherer:  gatherer,
	}, api.Config{
		Addr:                c.Addr(),
		EnableTrainEndpoint: c.EnableTrainEndpoint,
		RequestTimeout:      c.RequestTimeout,
		TrainRateLimit:      rate.Every(common.DefaultTrainInterval * time.Second),
		TrainBurst:          common.DefaultTrainBurst,
	})

	if dash != nil {
		dash.Register(server.Router())
		if err := dash.Start(); err != nil {
			log.Fatal().Err(err).Msg("dashboard start failed")
		}
		defer dash.Stop()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	log.Info().
		Str("addr", c.Addr()).
		Str("model_lib", models.ModelLib()).
		Bool("train_endpoint", c.EnableTrainEndpoint).
		Bool("dashboard", c.DashboardEnabled).
		Bool("audit_log", store != nil).
		Msg("agri-yield service ready")

	// Wait for shutdown signal
	waitForShutdown(ctx, server)
}

// initializeStorage initializes storage if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
		log.Warn().Err(err).Msg("storage directory unavailable, continuing without audit log")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without audit log")
		return nil
	}
	return store
}

// initializeModel loads the persisted model or trains one. A corrupt
// artifact or an unwritable model path aborts startup.
func initializeModel(c cfg.Settings, mw ml.MetricsInterface, store *storage.Store) *ml.ModelManager {
	trainer, err := ml.NewTrainer(ml.TrainerConfig{
		ModelLib: c.ModelLib,
		Samples:  c.TrainingSamples,
		Seed:     c.TrainingSeed,
	}, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("trainer configuration invalid")
	}

	models := ml.NewModelManager(c.ModelPath, trainer, mw)
	if store != nil {
		models.AddRunRecorder(store)
	}
	if _, err := models.LoadOrTrain(); err != nil {
		log.Fatal().Err(err).Str("model_path", c.ModelPath).Msg("model initialization failed")
	}
	return models
}

func waitForShutdown(ctx context.Context, server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}

// Package metrics provides Prometheus metrics collection for the yield
// prediction service. It covers prediction throughput and latency, the
// distribution of served yields and confidences, and the training lifecycle
// of the active model.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal   prometheus.Counter   // Successful predictions served
	PredictionFailures prometheus.Counter   // Predictions that returned an error
	UnsupportedCrops   prometheus.Counter   // Requests naming a crop outside the encoding
	PredictionLatency  prometheus.Histogram // End-to-end predict latency in seconds
	PredictedYield     prometheus.Histogram // Distribution of served yields in tons
	Confidence         prometheus.Histogram // Distribution of served confidence scores

	// Model lifecycle metrics
	TrainingRuns     prometheus.Counter   // Completed training runs
	TrainingDuration prometheus.Histogram // Duration of training runs in seconds
	ModelAge         prometheus.Gauge     // Age of the active model in seconds
	TrainRMSE        prometheus.Gauge     // Training RMSE of the most recent fit

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec // Requests by route and status code
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of yield predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed yield predictions",
		}),
		UnsupportedCrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "unsupported_crop_total",
			Help: "Total number of requests for crops without an encoding",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Yield prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		PredictedYield: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "predicted_yield_tons",
			Help:    "Distribution of predicted yields in tons",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0.3, 0.05, 14),
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of model training runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the active model in seconds",
		}),
		TrainRMSE: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_train_rmse",
			Help: "Training RMSE of the most recently fitted model",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"route", "code"}),
	}
}

// GetFailureRate returns failed predictions as a share of all prediction
// attempts, or 0 before any prediction.
func (m *Metrics) GetFailureRate(gatherer prometheus.Gatherer) float64 {
	var ok, failed float64

	metricFamilies, err := gatherer.Gather()
	if err != nil {
		return 0
	}

	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "predictions_total":
			for _, m := range mf.Metric {
				ok = m.GetCounter().GetValue()
			}
		case "prediction_failures_total":
			for _, m := range mf.Metric {
				failed = m.GetCounter().GetValue()
			}
		}
	}

	if ok+failed == 0 {
		return 0
	}
	return failed / (ok + failed)
}

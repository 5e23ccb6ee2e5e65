package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"agri-yield/internal/features"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

const (
	// YieldFloor is the smallest yield ever reported. It is the only repair
	// applied to a model output.
	YieldFloor = 0.05

	MinConfidence = 0.3
	MaxConfidence = 0.95

	// confidenceMoistureRef is the soil moisture at which the heuristic
	// reaches 1.0 before clipping.
	confidenceMoistureRef = 40.0

	explanationRationale = "Prediction combines crop baseline and current soil + recent weather"
)

// ModelSource hands out the active model artifact.
type ModelSource interface {
	Current() *Artifact
}

// PredictionRecorder receives every successful prediction.
type PredictionRecorder interface {
	RecordPrediction(event PredictionEvent) error
}

// KeyFactors echoes the inputs the explanation refers to.
type KeyFactors struct {
	SoilMoisturePct  float64 `json:"soil_moisture_pct"`
	SoilPH           float64 `json:"soil_ph"`
	OrganicMatterPct float64 `json:"organic_matter_pct"`
	RecentRainMM     float64 `json:"recent_rain_mm"`
}

// Explanation is a fixed-shape, human-readable summary of the inputs
// considered. It is not a learned attribution and says nothing about the
// model's actual sensitivity to each factor.
type Explanation struct {
	Why        string     `json:"why"`
	KeyFactors KeyFactors `json:"key_factors"`
}

// PredictionResult is returned to callers. All numbers carry at most three
// decimals.
type PredictionResult struct {
	YieldTons   float64     `json:"yield_tons"`
	Confidence  float64     `json:"confidence"`
	Explanation Explanation `json:"explanation"`
}

// PredictionEvent is what recorders receive for each prediction.
type PredictionEvent struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	Record       features.FeatureRecord `json:"record"`
	Result       PredictionResult       `json:"result"`
	ModelLib     string                 `json:"model_lib"`
	ModelVersion string                 `json:"model_version"`
	LatencyMS    float64                `json:"latency_ms"`
}

// YieldPredictor turns feature records into yield estimates using the model
// handed out by its ModelSource. It holds no mutable state of its own and
// is safe for concurrent use.
type YieldPredictor struct {
	models    ModelSource
	metrics   MetricsInterface
	recorders []PredictionRecorder
}

// NewYieldPredictor creates a predictor reading models from source.
func NewYieldPredictor(source ModelSource, metrics MetricsInterface, recorders ...PredictionRecorder) *YieldPredictor {
	return &YieldPredictor{
		models:    source,
		metrics:   metricsOrNoop(metrics),
		recorders: recorders,
	}
}

// Predict estimates the yield for rec. Invalid records and unsupported
// crops fail before the model is invoked.
func (p *YieldPredictor) Predict(rec features.FeatureRecord) (PredictionResult, error) {
	start := time.Now()

	result, art, err := p.predict(rec)
	latency := time.Since(start)
	p.metrics.PredictionLatencyObserve(latency.Seconds())
	if err != nil {
		p.metrics.PredictionFailuresInc()
		if errors.Is(err, features.ErrUnsupportedCrop) {
			p.metrics.UnsupportedCropInc()
		}
		return PredictionResult{}, err
	}

	p.metrics.PredictionsInc()
	p.metrics.PredictedYieldObserve(result.YieldTons)
	p.metrics.ConfidenceObserve(result.Confidence)

	if len(p.recorders) > 0 {
		event := PredictionEvent{
			ID:           uuid.NewString(),
			Timestamp:    start.UTC(),
			Record:       rec,
			Result:       result,
			ModelLib:     art.Meta.ModelLib,
			ModelVersion: art.Meta.Version,
			LatencyMS:    float64(latency.Microseconds()) / 1000,
		}
		for _, r := range p.recorders {
			if err := r.RecordPrediction(event); err != nil {
				log.Warn().Err(err).Str("prediction_id", event.ID).Msg("failed to record prediction")
			}
		}
	}
	return result, nil
}

func (p *YieldPredictor) predict(rec features.FeatureRecord) (PredictionResult, *Artifact, error) {
	if err := rec.Validate(); err != nil {
		return PredictionResult{}, nil, err
	}

	art := p.models.Current()
	if art == nil {
		return PredictionResult{}, nil, ErrNoModel
	}

	x, err := features.Vectorize(rec, art.CropMap)
	if err != nil {
		return PredictionResult{}, nil, err
	}

	out, err := art.Model.Predict(mat.NewDense(1, len(x), x))
	if err != nil {
		return PredictionResult{}, nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	if len(out) != 1 {
		return PredictionResult{}, nil, fmt.Errorf("%w: expected 1 output, got %d", ErrInference, len(out))
	}
	raw := out[0]
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		log.Error().Float64("raw", raw).Str("model_version", art.Meta.Version).Msg("non-finite model output")
		return PredictionResult{}, nil, fmt.Errorf("%w: non-finite output %v", ErrInference, raw)
	}

	return PredictionResult{
		YieldTons:  round3(ClampYield(raw)),
		Confidence: round3(Confidence(rec.SoilMoisturePct)),
		Explanation: Explanation{
			Why: explanationRationale,
			KeyFactors: KeyFactors{
				SoilMoisturePct:  round3(rec.SoilMoisturePct),
				SoilPH:           round3(rec.SoilPH),
				OrganicMatterPct: round3(rec.OrganicMatterPct),
				RecentRainMM:     round3(rec.Rainfall()),
			},
		},
	}, art, nil
}

// ClampYield applies the yield floor. Any raw value below YieldFloor is
// raised to it, not only non-positive ones, so every reported yield is at
// least 0.05 t.
func ClampYield(raw float64) float64 {
	if raw < YieldFloor {
		return YieldFloor
	}
	return raw
}

// Confidence is a rule-based trust score, not a probability or a calibrated
// interval: wetter soil, up to a 40% reference, raises it monotonically
// within [0.3, 0.95].
func Confidence(soilMoisturePct float64) float64 {
	c := 0.5 + 0.5*(soilMoisturePct/confidenceMoistureRef)
	return math.Min(MaxConfidence, math.Max(MinConfidence, c))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

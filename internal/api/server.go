// Package api exposes the yield predictor, the model lifecycle and the
// mocked field data providers over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"agri-yield/internal/common"
	"agri-yield/internal/features"
	"agri-yield/internal/metrics"
	"agri-yield/internal/ml"
	"agri-yield/internal/providers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Predictor serves single yield predictions.
type Predictor interface {
	Predict(rec features.FeatureRecord) (ml.PredictionResult, error)
}

// ModelService is the model lifecycle the API drives.
type ModelService interface {
	Current() *ml.Artifact
	ModelLib() string
	Retrain() (ml.TrainingReport, error)
	Reload() (*ml.Artifact, error)
}

// AuditLog answers queries over past predictions.
type AuditLog interface {
	GetPredictions(crop string, start, end time.Time) ([]ml.PredictionEvent, error)
	RecentPredictions(limit int) ([]ml.PredictionEvent, error)
}

// Deps are the collaborators a Server needs. Audit, Metrics and Gatherer
// are optional.
type Deps struct {
	Predictor Predictor
	Models    ModelService
	Weather   providers.WeatherProvider
	Soil      providers.SoilProvider
	Audit     AuditLog
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
}

// Config tunes the HTTP surface.
type Config struct {
	Addr                string
	EnableTrainEndpoint bool
	RequestTimeout      time.Duration

	// TrainRateLimit caps training requests; zero disables the limit.
	TrainRateLimit rate.Limit
	TrainBurst     int
}

// Server is the HTTP front end of the service.
type Server struct {
	deps   Deps
	config Config
	router *mux.Router
	server *http.Server

	trainLimiter *rate.Limiter
}

// PredictRequest mirrors FeatureRecord with required fields as pointers so
// that omissions can be told apart from zeros.
type PredictRequest struct {
	Crop              *string  `json:"crop"`
	AreaHa            *float64 `json:"areaHa"`
	SoilPH            *float64 `json:"soil_ph"`
	SoilMoisturePct   *float64 `json:"soil_moisture_pct"`
	OrganicMatterPct  *float64 `json:"organic_matter_pct"`
	AvgTempC          *float64 `json:"avg_temp_c"`
	RainfallLast30dMM *float64 `json:"rainfall_last_30d_mm"`
}

// TrainResponse is returned by the training endpoint.
type TrainResponse struct {
	Status   string  `json:"status"`
	ModelLib string  `json:"model_lib"`
	RunID    string  `json:"run_id,omitempty"`
	Version  string  `json:"version,omitempty"`
	RMSE     float64 `json:"train_rmse,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	ModelLib string `json:"model_lib"`
}

// ModelInfo describes the active model.
type ModelInfo struct {
	ModelLib       string    `json:"model_lib"`
	Version        string    `json:"version"`
	TrainedAt      time.Time `json:"trained_at"`
	AgeSeconds     float64   `json:"age_seconds"`
	Samples        int       `json:"training_samples"`
	Seed           uint64    `json:"seed"`
	TrainRMSE      float64   `json:"train_rmse"`
	TrainR2        float64   `json:"train_r2"`
	FeatureColumns []string  `json:"feature_columns"`
	Crops          []string  `json:"crops"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewServer wires the routes. Start must be called to listen.
func NewServer(deps Deps, config Config) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = common.DefaultRequestTimeout * time.Second
	}
	s := &Server{deps: deps, config: config}
	if config.TrainRateLimit > 0 {
		s.trainLimiter = rate.NewLimiter(config.TrainRateLimit, max(config.TrainBurst, 1))
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, s.accessLogMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/predict", s.withTimeout(s.handlePredict)).Methods(http.MethodPost)
	api.Handle("/weather", s.withTimeout(s.handleWeather)).Methods(http.MethodGet)
	api.Handle("/soil", s.withTimeout(s.handleSoil)).Methods(http.MethodGet)
	api.HandleFunc("/model", s.handleModelInfo).Methods(http.MethodGet)
	api.HandleFunc("/predictions", s.handlePredictions).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	if config.EnableTrainEndpoint {
		api.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.router = r
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // training runs synchronously
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router exposes the router so other components can mount routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP requests until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	body, _ := json.Marshal(errorResponse{Detail: "request timed out"})
	return http.TimeoutHandler(h, s.config.RequestTimeout, string(body))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	rec, err := req.toRecord()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := s.deps.Predictor.Predict(rec)
	if err != nil {
		s.writePredictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writePredictError(w http.ResponseWriter, err error) {
	var cropErr *features.UnsupportedCropError
	var valErr *features.ValidationError
	switch {
	case errors.As(err, &cropErr):
		writeError(w, http.StatusBadRequest, cropErr.Error())
	case errors.As(err, &valErr):
		writeError(w, http.StatusUnprocessableEntity, valErr.Error())
	case errors.Is(err, ml.ErrNoModel):
		writeError(w, http.StatusServiceUnavailable, "model not loaded")
	default:
		log.Error().Err(err).Msg("prediction failed")
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func (req PredictRequest) toRecord() (features.FeatureRecord, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"crop", req.Crop != nil},
		{"areaHa", req.AreaHa != nil},
		{"soil_ph", req.SoilPH != nil},
		{"soil_moisture_pct", req.SoilMoisturePct != nil},
		{"organic_matter_pct", req.OrganicMatterPct != nil},
	}
	for _, f := range required {
		if !f.present {
			return features.FeatureRecord{}, fmt.Errorf("field required: %s", f.name)
		}
	}

	return features.FeatureRecord{
		Crop:              *req.Crop,
		AreaHa:            *req.AreaHa,
		SoilPH:            *req.SoilPH,
		SoilMoisturePct:   *req.SoilMoisturePct,
		OrganicMatterPct:  *req.OrganicMatterPct,
		AvgTempC:          req.AvgTempC,
		RainfallLast30dMM: req.RainfallLast30dMM,
	}, nil
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if s.trainLimiter != nil && !s.trainLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "training rate limit exceeded")
		return
	}
	report, err := s.deps.Models.Retrain()
	if err != nil {
		log.Error().Err(err).Msg("training failed")
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}
	writeJSON(w, http.StatusOK, TrainResponse{
		Status:   report.Status,
		ModelLib: report.ModelLib,
		RunID:    report.RunID,
		Version:  report.Version,
		RMSE:     report.TrainRMSE,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	art, err := s.deps.Models.Reload()
	if err != nil {
		log.Error().Err(err).Msg("model reload failed")
		writeError(w, http.StatusInternalServerError, "model reload failed")
		return
	}
	writeJSON(w, http.StatusOK, TrainResponse{
		Status:   "reloaded",
		ModelLib: art.Meta.ModelLib,
		Version:  art.Meta.Version,
		RMSE:     art.Meta.TrainRMSE,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", ModelLib: s.deps.Models.ModelLib()})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	art := s.deps.Models.Current()
	if art == nil {
		writeError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}
	writeJSON(w, http.StatusOK, ModelInfo{
		ModelLib:       art.Meta.ModelLib,
		Version:        art.Meta.Version,
		TrainedAt:      art.Meta.TrainedAt,
		AgeSeconds:     time.Since(art.Meta.TrainedAt).Seconds(),
		Samples:        art.Meta.Samples,
		Seed:           art.Meta.Seed,
		TrainRMSE:      art.Meta.TrainRMSE,
		TrainR2:        art.Meta.TrainR2,
		FeatureColumns: art.Meta.FeatureColumns,
		Crops:          art.CropMap.Names(),
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var loc providers.Location
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"lat", &loc.Lat}, {"lon", &loc.Lon}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid %s: %q", p.name, raw))
			return
		}
		*p.dst = &v
	}

	summary, err := s.deps.Weather.Weather(r.Context(), loc)
	if err != nil {
		log.Error().Err(err).Msg("weather lookup failed")
		writeError(w, http.StatusBadGateway, "weather provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSoil(w http.ResponseWriter, r *http.Request) {
	soil, err := s.deps.Soil.Soil(r.Context(), r.URL.Query().Get("plot_id"))
	if err != nil {
		log.Error().Err(err).Msg("soil lookup failed")
		writeError(w, http.StatusBadGateway, "soil provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, soil)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		writeError(w, http.StatusNotFound, "prediction audit log is disabled")
		return
	}

	q := r.URL.Query()
	limit := common.DefaultPredictionLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid limit: %q", raw))
			return
		}
		limit = n
	}

	crop := q.Get("crop")
	if crop == "" {
		events, err := s.deps.Audit.RecentPredictions(limit)
		if err != nil {
			log.Error().Err(err).Msg("audit query failed")
			writeError(w, http.StatusInternalServerError, "audit query failed")
			return
		}
		writeJSON(w, http.StatusOK, nonNil(events))
		return
	}

	start, err := parseTime(q.Get("start"), time.Unix(0, 0))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	end, err := parseTime(q.Get("end"), time.Now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	events, err := s.deps.Audit.GetPredictions(crop, start, end)
	if err != nil {
		log.Error().Err(err).Msg("audit query failed")
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

func parseTime(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339", raw)
	}
	return t, nil
}

func nonNil(events []ml.PredictionEvent) []ml.PredictionEvent {
	if events == nil {
		return []ml.PredictionEvent{}
	}
	return events
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

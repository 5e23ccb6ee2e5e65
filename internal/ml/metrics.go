package ml

// MetricsInterface defines metrics methods needed by the trainer, the model
// manager and the predictor.
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	UnsupportedCropInc()
	PredictionLatencyObserve(float64)
	PredictedYieldObserve(float64)
	ConfidenceObserve(float64)
	TrainingRunsInc()
	TrainingDurationObserve(float64)
	ModelAgeSet(float64)
	TrainRMSESet(float64)
}

type noopMetrics struct{}

func (noopMetrics) PredictionsInc()                  {}
func (noopMetrics) PredictionFailuresInc()           {}
func (noopMetrics) UnsupportedCropInc()              {}
func (noopMetrics) PredictionLatencyObserve(float64) {}
func (noopMetrics) PredictedYieldObserve(float64)    {}
func (noopMetrics) ConfidenceObserve(float64)        {}
func (noopMetrics) TrainingRunsInc()                 {}
func (noopMetrics) TrainingDurationObserve(float64)  {}
func (noopMetrics) ModelAgeSet(float64)              {}
func (noopMetrics) TrainRMSESet(float64)             {}

func metricsOrNoop(m MetricsInterface) MetricsInterface {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

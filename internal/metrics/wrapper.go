package metrics

// Wrapper adapts Metrics to the narrow method set the model packages
// depend on, so they never import Prometheus.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc()        { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) PredictionFailuresInc() { w.m.PredictionFailures.Inc() }
func (w *Wrapper) UnsupportedCropInc()    { w.m.UnsupportedCrops.Inc() }
func (w *Wrapper) TrainingRunsInc()       { w.m.TrainingRuns.Inc() }

func (w *Wrapper) PredictionLatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *Wrapper) PredictedYieldObserve(tons float64) {
	w.m.PredictedYield.Observe(tons)
}

func (w *Wrapper) ConfidenceObserve(c float64) {
	w.m.Confidence.Observe(c)
}

func (w *Wrapper) TrainingDurationObserve(seconds float64) {
	w.m.TrainingDuration.Observe(seconds)
}

func (w *Wrapper) ModelAgeSet(seconds float64) {
	w.m.ModelAge.Set(seconds)
}

func (w *Wrapper) TrainRMSESet(rmse float64) {
	w.m.TrainRMSE.Set(rmse)
}

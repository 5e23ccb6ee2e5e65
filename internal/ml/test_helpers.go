package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      int
	failures         int
	unsupportedCrops int
	latencySum       float64
	yields           []float64
	confidences      []float64
	trainingRuns     int
	trainingDuration float64
	modelAge         float64
	trainRMSE        float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) UnsupportedCropInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsupportedCrops++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) PredictedYieldObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.yields = append(m.yields, v)
}

func (m *MockMetrics) ConfidenceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func (m *MockMetrics) TrainingRunsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRuns++
}

func (m *MockMetrics) TrainingDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingDuration += v
}

func (m *MockMetrics) ModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) TrainRMSESet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainRMSE = v
}

func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}

func (m *MockMetrics) TrainingRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trainingRuns
}

package inference

import (
	"fmt"
	"math"
	"sync"
)

// fixedScorer returns the same confidence for every vector.
type fixedScorer struct {
	score float64
}

func (s fixedScorer) Score([]float64) (float64, error) { return s.score, nil }

// linearScorer squashes a weighted sum through a sigmoid, giving a smooth
// function with known per-dimension sensitivity.
type linearScorer struct {
	weights []float64
}

func (s linearScorer) Score(vec []float64) (float64, error) {
	if len(vec) != len(s.weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(s.weights), len(vec))
	}
	var z float64
	for i, w := range s.weights {
		z += w * vec[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// failingScorer simulates a model evaluation fault.
type failingScorer struct{}

func (failingScorer) Score([]float64) (float64, error) {
	return 0, fmt.Errorf("weights corrupted")
}

// fixedAnomaly returns a constant anomaly magnitude.
type fixedAnomaly struct {
	score float64
}

func (a fixedAnomaly) Anomaly([]float64) (float64, error) { return a.score, nil }
func (a fixedAnomaly) Available() bool                    { return true }

// mockMetrics counts metric calls for assertions.
type mockMetrics struct {
	mu             sync.Mutex
	predictions    int
	failures       int
	neutralHistory int
	latencySum     float64
	confidences    []float64
	anomalies      []float64
}

func (m *mockMetrics) PredictionsInc() {
	m.mu.Lock()
	m.predictions++
	m.mu.Unlock()
}

func (m *mockMetrics) FailuresInc() {
	m.mu.Lock()
	m.failures++
	m.mu.Unlock()
}

func (m *mockMetrics) NeutralHistoryInc() {
	m.mu.Lock()
	m.neutralHistory++
	m.mu.Unlock()
}

func (m *mockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	m.latencySum += v
	m.mu.Unlock()
}

func (m *mockMetrics) ConfidenceObserve(v float64) {
	m.mu.Lock()
	m.confidences = append(m.confidences, v)
	m.mu.Unlock()
}

func (m *mockMetrics) AnomalyObserve(v float64) {
	m.mu.Lock()
	m.anomalies = append(m.anomalies, v)
	m.mu.Unlock()
}

package ml

import (
	"context"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	failures    map[string]int
	latencies   int
	cacheHits   int
	cacheMisses int
}

func (m *MockMetrics) PredictionInc(risk string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[risk]++
}

func (m *MockMetrics) FailureInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[kind]++
}

func (m *MockMetrics) LatencyObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *MockMetrics) CacheHitInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *MockMetrics) CacheMissInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

func (m *MockMetrics) Predictions(risk string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[risk]
}

func (m *MockMetrics) Failures(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[kind]
}

// StubClassifier returns a fixed label and records what it was called with.
type StubClassifier struct {
	Label int
	Err   error
	Width int

	mu    sync.Mutex
	calls int
	last  []float64
}

func (s *StubClassifier) NumFeatures() int {
	if s.Width == 0 {
		return 15
	}
	return s.Width
}

func (s *StubClassifier) Predict(_ context.Context, row []float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = append([]float64(nil), row...)
	return s.Label, s.Err
}

func (s *StubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubClassifier) Last() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// IdentityScaler passes the numeric columns through unchanged.
type IdentityScaler struct{}

func (IdentityScaler) NumFeatures() int { return 5 }

func (IdentityScaler) Transform(_ context.Context, row []float64) ([]float64, error) {
	return append([]float64(nil), row...), nil
}

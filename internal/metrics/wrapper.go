package metrics

import (
	"time"

	"heart-risk/internal/ml"
)

// MetricsWrapper adapts Metrics to the predictor's metrics interface. A nil
// wrapper or a wrapper around nil Metrics records nothing.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) enabled() bool {
	return w != nil && w.m != nil
}

func (w *MetricsWrapper) PredictionInc(risk string) {
	if w.enabled() {
		w.m.Predictions.WithLabelValues(risk).Inc()
	}
}

// FailureInc counts a failed prediction. Invalid input is also counted on
// its own counter so rejected submissions can be alerted on separately.
func (w *MetricsWrapper) FailureInc(kind string) {
	if !w.enabled() {
		return
	}
	w.m.Failures.WithLabelValues(kind).Inc()
	if kind == ml.FailureInvalidInput {
		w.m.InvalidInputs.Inc()
	}
}

func (w *MetricsWrapper) LatencyObserve(seconds float64) {
	if w.enabled() {
		w.m.PredictionLatency.Observe(seconds)
	}
}

func (w *MetricsWrapper) CacheHitInc() {
	if w.enabled() {
		w.m.CacheHits.Inc()
	}
}

func (w *MetricsWrapper) CacheMissInc() {
	if w.enabled() {
		w.m.CacheMisses.Inc()
	}
}

// InvalidInputInc counts a submission rejected before it reached the
// predictor, such as an unparseable form.
func (w *MetricsWrapper) InvalidInputInc() {
	if w.enabled() {
		w.m.InvalidInputs.Inc()
	}
}

func (w *MetricsWrapper) ArtifactsLoaded(at time.Time) {
	if w.enabled() {
		w.m.ArtifactsLoaded(at)
	}
}

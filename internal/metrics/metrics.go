// Package metrics provides Prometheus metrics for the heart risk service.
// It counts predictions by outcome, failures by kind and rejected
// submissions, and tracks prediction latency and cache effectiveness.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "heartrisk"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	Predictions       *prometheus.CounterVec // predictions by risk ("high", "low")
	Failures          *prometheus.CounterVec // failed predictions by kind
	InvalidInputs     prometheus.Counter     // submissions rejected before encoding
	PredictionLatency prometheus.Histogram   // end-to-end Predict latency
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	ArtifactsLoadedAt prometheus.Gauge // unix time the artifacts were loaded
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of predictions by risk",
		}, []string{"risk"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Total number of failed predictions by kind",
		}, []string{"kind"}),
		InvalidInputs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_inputs_total",
			Help:      "Total number of submissions rejected by validation",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_latency_seconds",
			Help:      "Prediction latency in seconds (end-to-end)",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of predictions served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of prediction cache misses",
		}),
		ArtifactsLoadedAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifacts_loaded_timestamp_seconds",
			Help:      "Unix time the scaler and classifier were loaded",
		}),
	}
}

// ArtifactsLoaded records when the artifacts were loaded.
func (m *Metrics) ArtifactsLoaded(at time.Time) {
	m.ArtifactsLoadedAt.Set(float64(at.Unix()))
}

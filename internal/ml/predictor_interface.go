// Package ml runs the heart disease risk model: it loads the fitted scaler and
// classifier artifacts, checks they agree with the feature schema, and turns a
// patient submission into a risk prediction.
//
// Artifacts come from JSON documents, a bbolt bundle, the pickled
// scikit-learn objects through a Python subprocess, or a remote inference
// endpoint. All of them are loaded once and never mutated afterwards.
package ml

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrArtifactLoad means a scaler or classifier could not be loaded.
	ErrArtifactLoad = errors.New("artifact load failed")
	// ErrSchemaMismatch means an artifact disagrees with the feature schema,
	// either in width, column names or output labels.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInference means an artifact backend failed while answering a call.
	ErrInference = errors.New("inference failed")
)

// Scaler transforms the continuous columns before they reach the classifier.
type Scaler interface {
	// NumFeatures is the width the scaler was fitted with.
	NumFeatures() int
	// Transform scales one row. The result has NumFeatures values.
	Transform(ctx context.Context, row []float64) ([]float64, error)
}

// Classifier predicts a binary label from the full feature vector.
type Classifier interface {
	// NumFeatures is the width the classifier was trained with.
	NumFeatures() int
	// Predict returns the label for one row.
	Predict(ctx context.Context, row []float64) (int, error)
}

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	PredictionInc(risk string)
	FailureInc(kind string)
	LatencyObserve(seconds float64)
	CacheHitInc()
	CacheMissInc()
}

// Risk is the binary prediction.
type Risk int

const (
	LowRisk  Risk = 0
	HighRisk Risk = 1
)

// RiskFromLabel maps a classifier label to a Risk.
func RiskFromLabel(label int) (Risk, error) {
	switch label {
	case 0:
		return LowRisk, nil
	case 1:
		return HighRisk, nil
	default:
		return LowRisk, fmt.Errorf("%w: classifier returned label %d, expected 0 or 1", ErrSchemaMismatch, label)
	}
}

// String is the short form used in metrics and logs.
func (r Risk) String() string {
	if r == HighRisk {
		return "high"
	}
	return "low"
}

func (r Risk) Label() string {
	if r == HighRisk {
		return "High Risk"
	}
	return "Low Risk"
}

func (r Risk) Message() string {
	return r.Label() + " of Heart Disease"
}

func checkWidth(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s expects %d features, got %d", ErrSchemaMismatch, what, want, got)
	}
	return nil
}

type kinded interface {
	Kind() string
}

func kindOf(v any) string {
	if k, ok := v.(kinded); ok {
		return k.Kind()
	}
	return fmt.Sprintf("%T", v)
}

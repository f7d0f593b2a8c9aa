package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"heart-risk/internal/features"
	"heart-risk/internal/patient"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Failure kinds reported through MetricsInterface.FailureInc.
const (
	FailureInvalidInput   = "invalid_input"
	FailureSchemaMismatch = "schema_mismatch"
	FailureInference      = "inference"
)

// Predictor runs the full pipeline for one submission. It is safe for
// concurrent use; the artifacts are never mutated after construction.
type Predictor struct {
	scaler     Scaler
	classifier Classifier
	metrics    MetricsInterface
	cacheSize  int
	cache      *lru.Cache[features.Vector, Risk]
}

type Option func(*Predictor)

func WithMetrics(m MetricsInterface) Option {
	return func(p *Predictor) { p.metrics = m }
}

// WithCacheSize keeps the last n predictions keyed by feature vector. Zero
// disables the cache.
func WithCacheSize(n int) Option {
	return func(p *Predictor) { p.cacheSize = n }
}

// Result is a prediction together with the vector the classifier saw.
type Result struct {
	Risk    Risk
	Encoded features.Encoded
	Cached  bool
}

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Scaler          string   `json:"scaler"`
	Classifier      string   `json:"classifier"`
	NumericFeatures []string `json:"numeric_features"`
	Features        []string `json:"features"`
	CacheSize       int      `json:"cache_size"`
}

func NewPredictor(scaler Scaler, classifier Classifier, opts ...Option) (*Predictor, error) {
	if scaler == nil || classifier == nil {
		return nil, fmt.Errorf("%w: scaler and classifier are required", ErrArtifactLoad)
	}
	if err := checkWidth("scaler", scaler.NumFeatures(), features.NumNumeric); err != nil {
		return nil, err
	}
	if err := checkWidth("classifier", classifier.NumFeatures(), features.Width); err != nil {
		return nil, err
	}

	p := &Predictor{scaler: scaler, classifier: classifier}
	for _, opt := range opts {
		opt(p)
	}
	if p.cacheSize < 0 {
		return nil, fmt.Errorf("cache size must be non-negative, got %d", p.cacheSize)
	}
	if p.cacheSize > 0 {
		cache, err := lru.New[features.Vector, Risk](p.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Encode validates the input and builds the scaled, one-hot encoded feature
// vector.
func (p *Predictor) Encode(ctx context.Context, in patient.RawInput) (features.Encoded, error) {
	if p == nil {
		return features.Encoded{}, errors.New("predictor is nil")
	}
	if err := patient.Validate(in); err != nil {
		return features.Encoded{}, err
	}
	cat, err := features.EncodeCategorical(in)
	if err != nil {
		return features.Encoded{}, err
	}

	raw := features.NumericOf(in)
	scaled, err := p.scaler.Transform(ctx, raw[:])
	if err != nil {
		return features.Encoded{}, fmt.Errorf("scale: %w", err)
	}
	if len(scaled) != features.NumNumeric {
		return features.Encoded{}, fmt.Errorf("%w: scaler returned %d values, expected %d", ErrSchemaMismatch, len(scaled), features.NumNumeric)
	}

	var num features.Numeric
	for i, v := range scaled {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return features.Encoded{}, fmt.Errorf("%w: scaled %s is %v", ErrInference, features.NumericNames[i], v)
		}
		num[i] = v
	}
	return features.Assemble(num, cat), nil
}

// Predict validates, encodes and classifies one submission.
func (p *Predictor) Predict(ctx context.Context, in patient.RawInput) (Result, error) {
	if p == nil {
		return Result{}, errors.New("predictor is nil")
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	enc, err := p.Encode(ctx, in)
	if err != nil {
		p.recordFailure(err)
		return Result{}, err
	}
	vec := enc.Vector()

	if p.cache != nil {
		if risk, ok := p.cache.Get(vec); ok {
			if p.metrics != nil {
				p.metrics.CacheHitInc()
				p.metrics.PredictionInc(risk.String())
			}
			return Result{Risk: risk, Encoded: enc, Cached: true}, nil
		}
		if p.metrics != nil {
			p.metrics.CacheMissInc()
		}
	}

	label, err := p.classifier.Predict(ctx, vec.Slice())
	if err != nil {
		err = fmt.Errorf("classify: %w", err)
		p.recordFailure(err)
		return Result{}, err
	}
	risk, err := RiskFromLabel(label)
	if err != nil {
		p.recordFailure(err)
		return Result{}, err
	}

	if p.cache != nil {
		p.cache.Add(vec, risk)
	}
	if p.metrics != nil {
		p.metrics.PredictionInc(risk.String())
	}

	named := zerolog.Dict()
	for _, f := range vec.Named() {
		named.Float64(f.Name, f.Value)
	}
	log.Debug().
		Str("risk", risk.String()).
		Dict("features", named).
		Dur("latency", time.Since(start)).
		Msg("Prediction successful")

	return Result{Risk: risk, Encoded: enc}, nil
}

func (p *Predictor) recordFailure(err error) {
	kind := FailureKind(err)
	if kind != FailureInvalidInput {
		log.Error().Err(err).Str("kind", kind).Msg("Prediction failed")
	}
	if p.metrics != nil {
		p.metrics.FailureInc(kind)
	}
}

// FailureKind classifies a Predict error for metrics and HTTP status mapping.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, patient.ErrInvalidInput):
		return FailureInvalidInput
	case errors.Is(err, ErrSchemaMismatch):
		return FailureSchemaMismatch
	default:
		return FailureInference
	}
}

func (p *Predictor) Describe() ModelInfo {
	if p == nil {
		return ModelInfo{}
	}
	return ModelInfo{
		Scaler:          kindOf(p.scaler),
		Classifier:      kindOf(p.classifier),
		NumericFeatures: append([]string(nil), features.NumericNames[:]...),
		Features:        append([]string(nil), features.Names[:]...),
		CacheSize:       p.cacheSize,
	}
}

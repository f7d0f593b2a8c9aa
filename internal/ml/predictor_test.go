package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"heart-risk/internal/features"
	"heart-risk/internal/patient"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioOne() patient.RawInput {
	in := patient.Defaults()
	in.ChestPainType = patient.ChestPainASY
	return in
}

func newTestPredictor(t *testing.T, c Classifier, opts ...Option) *Predictor {
	t.Helper()
	p, err := NewPredictor(IdentityScaler{}, c, opts...)
	require.NoError(t, err)
	return p
}

func TestNewPredictor_WidthChecks(t *testing.T) {
	_, err := NewPredictor(IdentityScaler{}, &StubClassifier{Width: 14})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	scaler, err := NewStandardScaler([]float64{0, 0, 0, 0}, []float64{1, 1, 1, 1})
	require.NoError(t, err)
	_, err = NewPredictor(scaler, &StubClassifier{})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = NewPredictor(nil, &StubClassifier{})
	assert.ErrorIs(t, err, ErrArtifactLoad)

	_, err = NewPredictor(IdentityScaler{}, &StubClassifier{}, WithCacheSize(-1))
	assert.Error(t, err)
}

func TestPredictor_EncodeScenarioOne(t *testing.T) {
	p := newTestPredictor(t, &StubClassifier{})

	enc, err := p.Encode(context.Background(), scenarioOne())
	require.NoError(t, err)

	v := enc.Vector()
	assert.Equal(t, []float64{45, 120, 200, 150, 1.0}, v[:features.NumNumeric])
	assert.Equal(t, []float64{0, 1, 1, 0, 0, 1, 0, 0, 0, 1}, v[features.NumNumeric:])
}

func TestPredictor_EncodeUsesScaler(t *testing.T) {
	scaler, err := NewStandardScaler([]float64{45, 120, 200, 150, 1}, []float64{5, 10, 50, 25, 0.5})
	require.NoError(t, err)
	p, err := NewPredictor(scaler, &StubClassifier{})
	require.NoError(t, err)

	in := scenarioOne()
	in.Age = 50
	enc, err := p.Encode(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, enc.ScaledAge, 1e-9)
	assert.InDelta(t, 0.0, enc.ScaledCholesterol, 1e-9)
}

func TestPredictor_PredictPassesVectorToClassifier(t *testing.T) {
	stub := &StubClassifier{Label: 1}
	p := newTestPredictor(t, stub)

	res, err := p.Predict(context.Background(), scenarioOne())
	require.NoError(t, err)
	assert.Equal(t, HighRisk, res.Risk)
	assert.Equal(t, "High Risk", res.Risk.Label())
	assert.Equal(t, "High Risk of Heart Disease", res.Risk.Message())

	v := res.Encoded.Vector()
	assert.Equal(t, v.Slice(), stub.Last())
}

func TestPredictor_LowRisk(t *testing.T) {
	p := newTestPredictor(t, &StubClassifier{Label: 0})

	res, err := p.Predict(context.Background(), scenarioOne())
	require.NoError(t, err)
	assert.Equal(t, LowRisk, res.Risk)
	assert.Equal(t, "Low Risk of Heart Disease", res.Risk.Message())
}

func TestPredictor_UnexpectedLabel(t *testing.T) {
	metrics := &MockMetrics{}
	p := newTestPredictor(t, &StubClassifier{Label: 2}, WithMetrics(metrics))

	_, err := p.Predict(context.Background(), scenarioOne())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Equal(t, 1, metrics.Failures(FailureSchemaMismatch))
}

func TestPredictor_InvalidInputNeverReachesClassifier(t *testing.T) {
	metrics := &MockMetrics{}
	stub := &StubClassifier{Label: 1}
	p := newTestPredictor(t, stub, WithMetrics(metrics))

	in := scenarioOne()
	in.Age = 0
	_, err := p.Predict(context.Background(), in)

	var verr *patient.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages(), "age")
	assert.Equal(t, 0, stub.Calls())
	assert.Equal(t, 1, metrics.Failures(FailureInvalidInput))
}

func TestPredictor_ClassifierError(t *testing.T) {
	metrics := &MockMetrics{}
	p := newTestPredictor(t, &StubClassifier{Err: errors.New("boom")}, WithMetrics(metrics))

	_, err := p.Predict(context.Background(), scenarioOne())
	require.Error(t, err)
	assert.Equal(t, FailureInference, FailureKind(err))
	assert.Equal(t, 1, metrics.Failures(FailureInference))
}

type nanScaler struct{ IdentityScaler }

func (nanScaler) Transform(context.Context, []float64) ([]float64, error) {
	return []float64{0, 0, math.NaN(), 0, 0}, nil
}

type shortScaler struct{ IdentityScaler }

func (shortScaler) Transform(context.Context, []float64) ([]float64, error) {
	return []float64{0, 0}, nil
}

func TestPredictor_ScalerOutputChecked(t *testing.T) {
	p, err := NewPredictor(nanScaler{}, &StubClassifier{})
	require.NoError(t, err)
	_, err = p.Encode(context.Background(), scenarioOne())
	assert.ErrorIs(t, err, ErrInference)

	p, err = NewPredictor(shortScaler{}, &StubClassifier{})
	require.NoError(t, err)
	_, err = p.Encode(context.Background(), scenarioOne())
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestPredictor_Cache(t *testing.T) {
	metrics := &MockMetrics{}
	stub := &StubClassifier{Label: 1}
	p := newTestPredictor(t, stub, WithMetrics(metrics), WithCacheSize(8))

	first, err := p.Predict(context.Background(), scenarioOne())
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), scenarioOne())
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Risk, second.Risk)
	assert.Equal(t, 1, stub.Calls())
	assert.Equal(t, 2, metrics.Predictions("high"))
	assert.Equal(t, 1, metrics.cacheHits)
	assert.Equal(t, 1, metrics.cacheMisses)
}

func TestPredictor_NoCacheByDefault(t *testing.T) {
	stub := &StubClassifier{}
	p := newTestPredictor(t, stub)

	for i := 0; i < 3; i++ {
		_, err := p.Predict(context.Background(), scenarioOne())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, stub.Calls())
}

func TestPredictor_ConcurrentPredict(t *testing.T) {
	p := newTestPredictor(t, &StubClassifier{Label: 1}, WithCacheSize(4))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := scenarioOne()
			in.Age = 30 + i%10
			if _, err := p.Predict(context.Background(), in); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent predict failed: %v", err)
	}
}

func TestPredictor_NilSafety(t *testing.T) {
	var p *Predictor

	_, err := p.Predict(context.Background(), scenarioOne())
	assert.Error(t, err)
	_, err = p.Encode(context.Background(), scenarioOne())
	assert.Error(t, err)
	assert.Equal(t, ModelInfo{}, p.Describe())
}

func TestPredictor_Describe(t *testing.T) {
	lr, err := NewLogisticRegression(make([]float64, features.Width), 0, 0)
	require.NoError(t, err)
	scaler, err := NewStandardScaler(make([]float64, 5), []float64{1, 1, 1, 1, 1})
	require.NoError(t, err)
	p, err := NewPredictor(scaler, lr, WithCacheSize(16))
	require.NoError(t, err)

	info := p.Describe()
	assert.Equal(t, "standard", info.Scaler)
	assert.Equal(t, "logistic", info.Classifier)
	assert.Equal(t, features.Names[:], info.Features)
	assert.Equal(t, 16, info.CacheSize)

	info.Features[0] = "changed"
	assert.Equal(t, "Age", features.Names[0])
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, FailureInvalidInput, FailureKind(patient.ErrInvalidInput))
	assert.Equal(t, FailureSchemaMismatch, FailureKind(ErrSchemaMismatch))
	assert.Equal(t, FailureInference, FailureKind(ErrInference))
	assert.Equal(t, FailureInference, FailureKind(context.DeadlineExceeded))
}

func TestRiskFromLabel(t *testing.T) {
	r, err := RiskFromLabel(0)
	require.NoError(t, err)
	assert.Equal(t, LowRisk, r)
	assert.Equal(t, "low", r.String())

	r, err = RiskFromLabel(1)
	require.NoError(t, err)
	assert.Equal(t, HighRisk, r)

	_, err = RiskFromLabel(-1)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestPredictor_DebugLogNamesFeatures(t *testing.T) {
	var buf bytes.Buffer
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	p := newTestPredictor(t, &StubClassifier{Label: 1})
	_, err := p.Predict(context.Background(), scenarioOne())
	require.NoError(t, err)

	var entry struct {
		Risk     string             `json:"risk"`
		Features map[string]float64 `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "high", entry.Risk)
	require.Len(t, entry.Features, features.Width)
	assert.Equal(t, 45.0, entry.Features["Age"])
	assert.Equal(t, 1.0, entry.Features["chestPainType_ASY"])
	assert.Equal(t, 0.0, entry.Features["chestPainType_TA"])
}

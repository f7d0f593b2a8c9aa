package ml

import (
	"context"
	"fmt"
)

// StandardScaler applies (x - mean) / scale per column, as fitted by
// scikit-learn's StandardScaler.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("%w: standard scaler has no columns", ErrArtifactLoad)
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("%w: standard scaler has %d means and %d scales", ErrArtifactLoad, len(mean), len(scale))
	}
	s := &StandardScaler{
		mean:  append([]float64(nil), mean...),
		scale: append([]float64(nil), scale...),
	}
	// scikit-learn stores 1 for constant columns; older exports may carry 0.
	for i, v := range s.scale {
		if v == 0 {
			s.scale[i] = 1
		}
	}
	return s, nil
}

func (s *StandardScaler) Kind() string     { return "standard" }
func (s *StandardScaler) NumFeatures() int { return len(s.mean) }

func (s *StandardScaler) Transform(_ context.Context, row []float64) ([]float64, error) {
	if err := checkWidth("standard scaler", len(row), len(s.mean)); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, x := range row {
		out[i] = (x - s.mean[i]) / s.scale[i]
	}
	return out, nil
}

// MinMaxScaler maps each column from [min, max] onto [lo, hi].
type MinMaxScaler struct {
	min, max []float64
	lo, hi   float64
}

func NewMinMaxScaler(dataMin, dataMax []float64, lo, hi float64) (*MinMaxScaler, error) {
	if len(dataMin) == 0 {
		return nil, fmt.Errorf("%w: min-max scaler has no columns", ErrArtifactLoad)
	}
	if len(dataMin) != len(dataMax) {
		return nil, fmt.Errorf("%w: min-max scaler has %d minimums and %d maximums", ErrArtifactLoad, len(dataMin), len(dataMax))
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: min-max scaler range [%g, %g] is empty", ErrArtifactLoad, lo, hi)
	}
	return &MinMaxScaler{
		min: append([]float64(nil), dataMin...),
		max: append([]float64(nil), dataMax...),
		lo:  lo,
		hi:  hi,
	}, nil
}

func (s *MinMaxScaler) Kind() string     { return "minmax" }
func (s *MinMaxScaler) NumFeatures() int { return len(s.min) }

func (s *MinMaxScaler) Transform(_ context.Context, row []float64) ([]float64, error) {
	if err := checkWidth("min-max scaler", len(row), len(s.min)); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, x := range row {
		span := s.max[i] - s.min[i]
		if span == 0 {
			span = 1
		}
		out[i] = s.lo + (x-s.min[i])/span*(s.hi-s.lo)
	}
	return out, nil
}

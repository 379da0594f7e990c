package features

import (
	"encoding/json"
	"math"
	"os"

	"github.com/tphakala/snapquote/internal/errors"
)

// Scaler standardizes feature vectors with per-dimension z-scores.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// scalerFile accepts the field names written by common exporters.
type scalerFile struct {
	Mean   []float64 `json:"mean"`
	Scale  []float64 `json:"scale"`
	Std    []float64 `json:"std"`
	Stddev []float64 `json:"stddev"`
}

// LoadScaler reads a JSON scaler artifact.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryDegradedNormalization).
			FileContext(path, 0).
			Build()
	}
	s, err := ParseScaler(data)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryDegradedNormalization).
			Context("path", path).
			Build()
	}
	return s, nil
}

// ParseScaler decodes and validates scaler JSON. Zero or non-finite scale
// entries leave their dimension unscaled.
func ParseScaler(data []byte) (*Scaler, error) {
	var f scalerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Newf("decode scaler: %w", err).
			Category(errors.CategoryFileParsing).
			Build()
	}

	scale := f.Scale
	switch {
	case scale != nil:
	case f.Std != nil:
		scale = f.Std
	default:
		scale = f.Stddev
	}

	if len(f.Mean) == 0 {
		return nil, errors.Newf("scaler has no mean").Category(errors.CategoryValidation).Build()
	}
	if len(scale) != len(f.Mean) {
		return nil, errors.Newf("scaler has %d means but %d scales", len(f.Mean), len(scale)).
			Category(errors.CategoryValidation).
			Build()
	}

	s := &Scaler{Mean: f.Mean, Scale: make([]float64, len(scale))}
	for i, v := range scale {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 1
		}
		s.Scale[i] = v
	}
	return s, nil
}

// Dim returns the vector length the scaler was fitted on.
func (s *Scaler) Dim() int { return len(s.Mean) }

// Transform returns (x - mean) / scale. Vectors of the wrong length are
// rejected.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, errors.Newf("scaler expects %d features, got %d", len(s.Mean), len(x)).
			Component("features").
			Category(errors.CategoryDegradedNormalization).
			Context("expected", len(s.Mean)).
			Context("actual", len(x)).
			Build()
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

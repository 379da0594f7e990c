// Package features turns mono PCM into the fixed-length vectors consumed by
// the audio classifier.
package features

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// Kind names a feature layout.
type Kind string

const (
	KindMFCC     Kind = "mfcc"
	KindMultiple Kind = "multiple"
)

// Vector lengths per layout.
const (
	MFCCDim     = MFCCCount
	MultipleDim = 2*MFCCCount + 3 + ChromaBins
)

// Extractor produces one feature vector per clip.
type Extractor interface {
	Kind() Kind
	Dim() int
	Extract(samples []float32, sampleRate int) ([]float64, error)
}

// NewExtractor returns the extractor for kind. Matching is case-insensitive.
func NewExtractor(kind string) (Extractor, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindMFCC:
		return mfccExtractor{}, nil
	case KindMultiple:
		return multipleExtractor{}, nil
	default:
		return nil, errors.Newf("unknown feature type %q", kind).
			Component("features").
			Category(errors.CategoryInvalidArgument).
			Context("feature_type", kind).
			Build()
	}
}

// mfccExtractor yields the per-coefficient mean of 13 MFCCs.
type mfccExtractor struct{}

func (mfccExtractor) Kind() Kind { return KindMFCC }
func (mfccExtractor) Dim() int   { return MFCCDim }

func (mfccExtractor) Extract(samples []float32, sampleRate int) ([]float64, error) {
	spec, err := Analyze(toFloat64(samples), sampleRate)
	if err != nil {
		return nil, err
	}
	means, _ := columnStats(MFCC(spec))
	return means, nil
}

// multipleExtractor yields MFCC means and standard deviations, the mean
// spectral centroid, rolloff and zero-crossing rate, then 12 chroma means.
type multipleExtractor struct{}

func (multipleExtractor) Kind() Kind { return KindMultiple }
func (multipleExtractor) Dim() int   { return MultipleDim }

func (multipleExtractor) Extract(samples []float32, sampleRate int) ([]float64, error) {
	signal := toFloat64(samples)
	spec, err := Analyze(signal, sampleRate)
	if err != nil {
		return nil, err
	}

	mfccMean, mfccStd := columnStats(MFCC(spec))
	chromaMean, _ := columnStats(Chroma(spec))

	vec := make([]float64, 0, MultipleDim)
	vec = append(vec, mfccMean...)
	vec = append(vec, mfccStd...)
	vec = append(vec,
		stat.Mean(SpectralCentroid(spec), nil),
		stat.Mean(SpectralRolloff(spec), nil),
		stat.Mean(ZeroCrossingRate(signal), nil),
	)
	vec = append(vec, chromaMean...)

	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Newf("feature %d is not finite", i).
				Component("features").
				Category(errors.CategoryInvalidInput).
				Build()
		}
	}

	GetLogger().Trace("features extracted",
		logger.String("kind", string(KindMultiple)),
		logger.Int("frames", spec.Frames()))
	return vec, nil
}

// columnStats returns the mean and population standard deviation of every
// column of a [frame][coefficient] matrix.
func columnStats(rows [][]float64) (means, stds []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	means = make([]float64, width)
	stds = make([]float64, width)
	column := make([]float64, len(rows))
	for c := range width {
		for t, row := range rows {
			column[t] = row[c]
		}
		means[c], stds[c] = stat.PopMeanStdDev(column, nil)
	}
	return means, stds
}

func toFloat64(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}

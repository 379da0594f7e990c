// Package calibration turns a raw class probability vector into an
// uncertainty-aware classification result.
package calibration

import (
	"fmt"
	"math"

	"github.com/tphakala/snapquote/internal/errors"
)

// Label is the reported class name.
type Label string

const (
	LabelNormal    Label = "Normal"
	LabelAnomalous Label = "Anomalous"
	LabelUncertain Label = "Uncertain"
)

const (
	// DefaultThreshold is the confidence below which a result is Uncertain.
	DefaultThreshold = 0.7
	// Epsilon bounds every probability away from exactly 0 and 1.
	Epsilon = 1e-7
)

// DefaultLabels names the classes of the two-class anomaly model.
var DefaultLabels = []Label{LabelNormal, LabelAnomalous}

// Result is a calibrated classification. Uncertain is true exactly when
// Confidence is below the threshold, and Label is then LabelUncertain.
type Result struct {
	PredictedClass int
	Label          Label
	Probabilities  []float64
	Confidence     float64
	Uncertain      bool
	Score          int
	Threshold      float64
}

// Calibrator applies clamping, renormalization and the confidence threshold.
type Calibrator struct {
	Threshold float64
	Labels    []Label
}

// New returns a Calibrator for the two-class model.
func New(threshold float64) *Calibrator {
	return &Calibrator{Threshold: threshold, Labels: DefaultLabels}
}

// Validate checks that the threshold lies in (0, 1].
func Validate(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return errors.Newf("confidence threshold must be in (0, 1], got %v", threshold).
			Category(errors.CategoryInvalidArgument).
			Context("threshold", threshold).
			Build()
	}
	return nil
}

// Calibrate interprets raw. The input slice is not modified.
func (c *Calibrator) Calibrate(raw []float64) (Result, error) {
	if err := Validate(c.Threshold); err != nil {
		return Result{}, err
	}
	probs, err := Normalize(raw)
	if err != nil {
		return Result{}, err
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	confidence := probs[best]

	res := Result{
		PredictedClass: best,
		Probabilities:  probs,
		Confidence:     confidence,
		Score:          int(math.Floor(confidence * 100)),
		Threshold:      c.Threshold,
	}
	if confidence < c.Threshold {
		res.Label = LabelUncertain
		res.Uncertain = true
	} else {
		res.Label = c.classLabel(best)
	}
	return res, nil
}

func (c *Calibrator) classLabel(i int) Label {
	if i < len(c.Labels) {
		return c.Labels[i]
	}
	return Label(fmt.Sprintf("class_%d", i))
}

// Normalize clamps each component to [Epsilon, 1-Epsilon] and rescales the
// vector to sum to one. Components that the rescale pushes below Epsilon are
// pinned at Epsilon and the rest share the remaining mass, so the result is
// in bounds and Normalize(Normalize(v)) == Normalize(v). An empty vector or
// any NaN component is rejected.
func Normalize(raw []float64) ([]float64, error) {
	if len(raw) == 0 {
		return nil, errors.Newf("empty probability vector").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	clamped := make([]float64, len(raw))
	for i, p := range raw {
		if math.IsNaN(p) {
			return nil, errors.Newf("probability vector contains NaN at index %d", i).
				Category(errors.CategoryInvalidInput).
				Context("vector_length", len(raw)).
				Build()
		}
		clamped[i] = min(max(p, Epsilon), 1-Epsilon)
	}

	out := make([]float64, len(raw))
	pinned := make([]bool, len(raw))
	for range len(raw) {
		var free float64
		var npinned int
		for i, p := range clamped {
			if pinned[i] {
				npinned++
			} else {
				free += p
			}
		}
		if npinned == len(raw) {
			break
		}

		scale := (1 - Epsilon*float64(npinned)) / free
		settled := true
		for i, p := range clamped {
			if pinned[i] {
				out[i] = Epsilon
				continue
			}
			out[i] = p * scale
			if out[i] < Epsilon {
				pinned[i] = true
				settled = false
			}
		}
		if settled {
			return out, nil
		}
	}

	// Unreachable for vectors shorter than 1/Epsilon; fall back to uniform.
	for i := range out {
		out[i] = 1 / float64(len(out))
	}
	return out, nil
}

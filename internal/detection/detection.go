// Package detection implements the detection path of the inference pipeline:
// the adaptive two-pass confidence policy, class id relabelling and the
// assembly of the reported batch.
package detection

import (
	"context"
	"encoding/json"
)

// Box is an axis-aligned bounding box in source image pixels.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a [x1, y1, x2, y2] array.
func (b *Box) UnmarshalJSON(data []byte) error {
	var v [4]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	return nil
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	ix1, iy1 := max(b.X1, o.X1), max(b.Y1, o.Y1)
	ix2, iy2 := min(b.X2, o.X2), min(b.Y2, o.Y2)
	inter := Box{ix1, iy1, ix2, iy2}.Area()
	if inter == 0 {
		return 0
	}
	return inter / (b.Area() + o.Area() - inter)
}

// RawDetection is the normalized output of any detector backend.
type RawDetection struct {
	ClassID    int
	Confidence float64
	Box        *Box
	ModelLabel string // class name shipped with the model, may be empty
}

// Detection is one reported object.
type Detection struct {
	ClassID     int     `json:"class_id"`
	RawLabel    string  `json:"original_name"`
	MappedLabel string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Box         *Box    `json:"box_xyxy"`
}

// Scorer runs a detector on a source at a confidence threshold. Backends
// adapt their native result shapes to RawDetection.
type Scorer interface {
	Detect(ctx context.Context, source string, threshold float64) ([]RawDetection, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, source string, threshold float64) ([]RawDetection, error)

// Detect calls f.
func (f ScorerFunc) Detect(ctx context.Context, source string, threshold float64) ([]RawDetection, error) {
	return f(ctx, source, threshold)
}

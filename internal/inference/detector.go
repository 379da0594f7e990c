package inference

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tphakala/snapquote/internal/detection"
	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// DefaultInputSize is the square input edge of exported YOLO models.
const DefaultInputSize = 640

// DetectorOptions configures LoadDetector.
type DetectorOptions struct {
	Threads   int
	InputSize int     // 0 reads the size from the model
	IoU       float64 // 0 uses DefaultIoU
}

// Detector runs a YOLO TFLite export over image files. It implements
// detection.Scorer.
type Detector struct {
	sess      *session
	inputSize int
	iou       float64
	labels    []string

	mu       sync.Mutex
	cacheKey string
	cacheLB  Letterbox
	cacheIn  []float32
}

var _ detection.Scorer = (*Detector)(nil)

// LoadDetector opens the detector weights and any labels file beside them.
func LoadDetector(weightsPath string, opts DetectorOptions) (*Detector, error) {
	sess, err := openSession(weightsPath, opts.Threads)
	if err != nil {
		return nil, err
	}

	d := &Detector{sess: sess, inputSize: opts.InputSize, iou: opts.IoU}
	if d.iou <= 0 {
		d.iou = DefaultIoU
	}

	tensor, _, err := sess.input()
	if err != nil {
		sess.close()
		return nil, err
	}
	shape := tensorShape(tensor)
	if len(shape) != 4 || shape[3] != 3 || shape[1] != shape[2] {
		sess.close()
		return nil, errors.Newf("unsupported detector input shape %v", shape).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(weightsPath, "tflite").
			Build()
	}
	if d.inputSize <= 0 || d.inputSize != shape[1] {
		if opts.InputSize > 0 && opts.InputSize != shape[1] {
			GetLogger().Warn("configured input size does not match model, using model size",
				logger.Int("configured", opts.InputSize),
				logger.Int("model", shape[1]))
		}
		d.inputSize = shape[1]
	}

	d.labels = loadLabels(weightsPath)
	return d, nil
}

// labelCandidates lists the label files checked for weightsPath.
func labelCandidates(weightsPath string) []string {
	return []string{
		weightsPath + ".labels.txt",
		filepath.Join(filepath.Dir(weightsPath), "labels.txt"),
	}
}

// loadLabels reads one class name per line from the first labels file found.
func loadLabels(weightsPath string) []string {
	for _, path := range labelCandidates(weightsPath) {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		var labels []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			labels = append(labels, strings.TrimSpace(scanner.Text()))
		}
		err = scanner.Err()
		_ = f.Close()
		if err != nil {
			GetLogger().Warn("failed to read labels file",
				logger.String("path", path),
				logger.Error(err))
			return nil
		}
		GetLogger().Debug("loaded model labels",
			logger.String("path", path),
			logger.Int("count", len(labels)))
		return labels
	}
	return nil
}

// Label returns the model's own name for classID, or "".
func (d *Detector) Label(classID int) string {
	if classID >= 0 && classID < len(d.labels) {
		return d.labels[classID]
	}
	return ""
}

// Detect runs the model on the image at source and returns boxes whose best
// class score exceeds threshold, after class-aware suppression. The decoded
// and letterboxed input is reused when the same source is scored again.
func (d *Detector) Detect(ctx context.Context, source string, threshold float64) ([]detection.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lb, err := d.prepare(source)
	if err != nil {
		return nil, err
	}

	tensor, size, err := d.sess.input()
	if err != nil {
		return nil, err
	}
	if size != len(d.cacheIn) {
		return nil, errors.Newf("input tensor holds %d values, prepared %d", size, len(d.cacheIn)).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			Build()
	}
	copy(tensor.Float32s(), d.cacheIn)

	if err := d.sess.invoke(); err != nil {
		return nil, err
	}

	out, err := d.sess.output()
	if err != nil {
		return nil, err
	}
	cands, err := decodeYOLO(tensorShape(out), out.Float32s(), threshold, float64(d.inputSize))
	if err != nil {
		return nil, errors.New(err).
			Component("inference").
			Category(errors.CategoryScorerFailure).
			ModelContext(d.sess.path, "tflite").
			Build()
	}

	kept := nonMaxSuppression(cands, d.iou, MaxDetections)
	return d.toRaw(kept, lb), nil
}

// prepare decodes and letterboxes source unless it is already cached.
func (d *Detector) prepare(source string) (Letterbox, error) {
	if d.cacheKey == source && d.cacheIn != nil {
		return d.cacheLB, nil
	}

	img, err := LoadImage(source)
	if err != nil {
		return Letterbox{}, err
	}
	return d.prepareImage(source, img), nil
}

func (d *Detector) prepareImage(key string, img image.Image) Letterbox {
	canvas, lb := letterbox(img, d.inputSize)
	in := make([]float32, d.inputSize*d.inputSize*3)
	imageToTensor(canvas, in)

	d.cacheKey, d.cacheLB, d.cacheIn = key, lb, in
	return lb
}

func (d *Detector) toRaw(kept []candidate, lb Letterbox) []detection.RawDetection {
	out := make([]detection.RawDetection, 0, len(kept))
	for _, c := range kept {
		x1, y1 := lb.Unmap(c.box.X1, c.box.Y1)
		x2, y2 := lb.Unmap(c.box.X2, c.box.Y2)
		out = append(out, detection.RawDetection{
			ClassID:    c.classID,
			Confidence: c.confidence,
			Box:        &detection.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
			ModelLabel: d.Label(c.classID),
		})
	}
	return out
}

// Close releases the interpreter.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sess.close()
	d.cacheIn = nil
	return nil
}

// decodeYOLO turns a [1, 4+nc, N] or [1, N, 4+nc] output into candidates in
// input pixel coordinates. Normalised exports are scaled by inputSize.
func decodeYOLO(shape []int, raw []float32, threshold, inputSize float64) ([]candidate, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unsupported detector output shape %v", shape)
	}

	// The anchor axis is the longer one.
	channelsFirst := shape[1] < shape[2]
	attrs, anchors := shape[2], shape[1]
	if channelsFirst {
		attrs, anchors = shape[1], shape[2]
	}
	if attrs < 5 {
		return nil, fmt.Errorf("detector output has %d attributes, need at least 5", attrs)
	}
	if len(raw) < attrs*anchors {
		return nil, fmt.Errorf("detector output holds %d values, shape %v needs %d", len(raw), shape, attrs*anchors)
	}

	at := func(anchor, attr int) float64 {
		if channelsFirst {
			return float64(raw[attr*anchors+anchor])
		}
		return float64(raw[anchor*attrs+attr])
	}

	scale := 1.0
	if normalizedBoxes(anchors, at) {
		scale = inputSize
	}

	var cands []candidate
	for a := range anchors {
		best, bestScore := -1, 0.0
		for c := 4; c < attrs; c++ {
			if s := at(a, c); best < 0 || s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if bestScore <= threshold {
			continue
		}

		cx, cy := at(a, 0)*scale, at(a, 1)*scale
		w, h := at(a, 2)*scale, at(a, 3)*scale
		cands = append(cands, candidate{
			classID:    best,
			confidence: bestScore,
			box:        detection.Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return cands, nil
}

// normalizedBoxes reports whether every box coordinate lies within [0, 2],
// which only happens for exports that emit coordinates relative to the input.
func normalizedBoxes(anchors int, at func(anchor, attr int) float64) bool {
	for a := range anchors {
		for i := range 4 {
			if at(a, i) > 2 {
				return false
			}
		}
	}
	return true
}

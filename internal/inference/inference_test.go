package inference

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/snapquote/internal/detection"
	"github.com/tphakala/snapquote/internal/errors"
)

func TestNonMaxSuppressionIsClassAware(t *testing.T) {
	t.Parallel()

	cands := []candidate{
		{classID: 1, confidence: 0.6, box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{classID: 1, confidence: 0.9, box: detection.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}},
		{classID: 2, confidence: 0.5, box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{classID: 1, confidence: 0.4, box: detection.Box{X1: 50, Y1: 50, X2: 60, Y2: 60}},
	}

	kept := nonMaxSuppression(cands, DefaultIoU, MaxDetections)
	require.Len(t, kept, 3)
	assert.InDelta(t, 0.9, kept[0].confidence, 1e-12)
	assert.Equal(t, 2, kept[1].classID)
	assert.InDelta(t, 0.4, kept[2].confidence, 1e-12)

	assert.Len(t, nonMaxSuppression(cands, DefaultIoU, 1), 1)
	assert.Empty(t, nonMaxSuppression(nil, DefaultIoU, MaxDetections))
}

// yoloOutput lays out rows of [cx, cy, w, h, class scores...] either anchor
// major or attribute major.
func yoloOutput(rows [][]float32, channelsFirst bool) ([]int, []float32) {
	anchors, attrs := len(rows), len(rows[0])
	raw := make([]float32, anchors*attrs)
	for a, row := range rows {
		for i, v := range row {
			if channelsFirst {
				raw[i*anchors+a] = v
			} else {
				raw[a*attrs+i] = v
			}
		}
	}
	if channelsFirst {
		return []int{1, attrs, anchors}, raw
	}
	return []int{1, anchors, attrs}, raw
}

func TestDecodeYOLOLayouts(t *testing.T) {
	t.Parallel()

	// Anchor 0 is class 1 at 0.8; the rest stay below any useful threshold.
	rows := [][]float32{{100, 200, 40, 20, 0.1, 0.8}}
	for range 7 {
		rows = append(rows, []float32{300, 300, 10, 10, 0.02, 0.03})
	}

	for _, channelsFirst := range []bool{true, false} {
		shape, raw := yoloOutput(rows, channelsFirst)

		cands, err := decodeYOLO(shape, raw, 0.25, 640)
		require.NoError(t, err)
		require.Len(t, cands, 1, "channels first: %v", channelsFirst)
		assert.Equal(t, 1, cands[0].classID)
		assert.InDelta(t, 0.8, cands[0].confidence, 1e-6)
		assert.Equal(t, detection.Box{X1: 80, Y1: 190, X2: 120, Y2: 210}, cands[0].box)

		cands, err = decodeYOLO(shape, raw, 0.8, 640)
		require.NoError(t, err)
		assert.Empty(t, cands, "threshold is exclusive")
	}

	_, raw := yoloOutput(rows, false)
	_, err := decodeYOLO([]int{8, 6}, raw, 0.25, 640)
	assert.Error(t, err)
	_, err = decodeYOLO([]int{1, 3, 4}, make([]float32, 12), 0.25, 640)
	assert.Error(t, err)
	_, err = decodeYOLO([]int{1, 100, 6}, raw, 0.25, 640)
	assert.Error(t, err)
}

func TestDecodeYOLONormalizedBoxes(t *testing.T) {
	t.Parallel()

	rows := [][]float32{{0.5, 0.5, 0.25, 0.125, 0.9}}
	for range 5 {
		rows = append(rows, []float32{0.1, 0.1, 0.1, 0.1, 0.01})
	}
	shape, raw := yoloOutput(rows, true)

	cands, err := decodeYOLO(shape, raw, 0.25, 640)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, detection.Box{X1: 240, Y1: 280, X2: 400, Y2: 360}, cands[0].box)
}

func TestLetterboxMath(t *testing.T) {
	t.Parallel()

	lb := NewLetterbox(1280, 640, 640)
	assert.InDelta(t, 0.5, lb.Scale, 1e-12)
	assert.InDelta(t, 0, lb.PadX, 1e-12)
	assert.InDelta(t, 160, lb.PadY, 1e-12)

	x, y := lb.Unmap(320, 320)
	assert.InDelta(t, 640, x, 1e-9)
	assert.InDelta(t, 320, y, 1e-9)

	x, y = lb.Unmap(-10, 700)
	assert.Zero(t, x)
	assert.InDelta(t, 640, y, 1e-9)
}

func TestLetterboxCanvasAndTensor(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := range 32 {
		for x := range 64 {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	canvas, lb := letterbox(src, 32)
	assert.InDelta(t, 0.5, lb.Scale, 1e-12)
	assert.Equal(t, letterboxFill, canvas.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, canvas.RGBAAt(16, 16))

	tensor := make([]float32, 32*32*3)
	imageToTensor(canvas, tensor)
	base := (16*32 + 16) * 3
	assert.InDelta(t, 1.0, tensor[base], 1e-6)
	assert.InDelta(t, 0.0, tensor[base+1], 1e-6)
	assert.InDelta(t, 114.0/255.0, tensor[0], 1e-6)
}

func TestLoadImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "part.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 4))))
	require.NoError(t, f.Close())

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = LoadImage(filepath.Join(dir, "absent.jpg"))
	assert.True(t, errors.IsCategory(err, errors.CategoryInputNotFound))

	junk := filepath.Join(dir, "junk.jpg")
	require.NoError(t, os.WriteFile(junk, []byte("nope"), 0o600))
	_, err = LoadImage(junk)
	assert.True(t, errors.IsCategory(err, errors.CategoryImage))
}

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	weights := filepath.Join(dir, "best.tflite")
	assert.Nil(t, loadLabels(weights))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"), []byte("hood\ndoor\n"), 0o600))
	assert.Equal(t, []string{"hood", "door"}, loadLabels(weights))

	require.NoError(t, os.WriteFile(weights+".labels.txt", []byte("bumper\n"), 0o600))
	assert.Equal(t, []string{"bumper"}, loadLabels(weights))

	d := &Detector{labels: []string{"bumper"}}
	assert.Equal(t, "bumper", d.Label(0))
	assert.Empty(t, d.Label(4))
}

func TestOpenSessionMissingModel(t *testing.T) {
	t.Parallel()

	_, err := LoadClassifier(filepath.Join(t.TempDir(), "absent.tflite"), 1)
	assert.True(t, errors.IsCategory(err, errors.CategoryArtifactNotFound))
}

func TestExtractScores(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{0.25, 0.75}, extractScores(2, []float32{0.25, 0.75, 9}))
	assert.Equal(t, []float64{0.5}, extractScores(4, []float32{0.5}))
}

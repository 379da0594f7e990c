package inference

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// letterboxFill is the grey used for padding, matching YOLO training.
var letterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// LoadImage decodes a JPEG, PNG, WebP or BMP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		category := errors.CategoryFileIO
		if os.IsNotExist(err) {
			category = errors.CategoryInputNotFound
		}
		return nil, errors.New(err).
			Component("inference").
			Category(category).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("inference").
			Category(errors.CategoryImage).
			FileContext(path, 0).
			Build()
	}
	GetLogger().Trace("image decoded",
		logger.String("format", format),
		logger.Int("width", img.Bounds().Dx()),
		logger.Int("height", img.Bounds().Dy()))
	return img, nil
}

// Letterbox records how a source image was fitted into the model input.
type Letterbox struct {
	Scale  float64
	PadX   float64
	PadY   float64
	Width  int // source width
	Height int // source height
}

// NewLetterbox computes the uniform scale and centring padding that fit a
// width x height image into a size x size square.
func NewLetterbox(width, height, size int) Letterbox {
	scale := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	newW := math.Round(float64(width) * scale)
	newH := math.Round(float64(height) * scale)
	return Letterbox{
		Scale:  scale,
		PadX:   (float64(size) - newW) / 2,
		PadY:   (float64(size) - newH) / 2,
		Width:  width,
		Height: height,
	}
}

// Unmap converts a point in model input coordinates back to source pixels,
// clamped to the image.
func (lb Letterbox) Unmap(x, y float64) (float64, float64) {
	sx := (x - lb.PadX) / lb.Scale
	sy := (y - lb.PadY) / lb.Scale
	return clamp(sx, 0, float64(lb.Width)), clamp(sy, 0, float64(lb.Height))
}

// letterbox scales img into a grey size x size canvas.
func letterbox(img image.Image, size int) (*image.RGBA, Letterbox) {
	b := img.Bounds()
	lb := NewLetterbox(b.Dx(), b.Dy(), size)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: letterboxFill}, image.Point{}, draw.Src)

	x0 := int(math.Round(lb.PadX - 0.1))
	y0 := int(math.Round(lb.PadY - 0.1))
	w := int(math.Round(float64(b.Dx()) * lb.Scale))
	h := int(math.Round(float64(b.Dy()) * lb.Scale))
	draw.BiLinear.Scale(canvas, image.Rect(x0, y0, x0+w, y0+h), img, b, draw.Src, nil)

	return canvas, lb
}

// imageToTensor lays out an RGBA image as NHWC float32 in [0,1].
func imageToTensor(img *image.RGBA, dst []float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := range h {
		for x := range w {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			base := (y*w + x) * 3
			dst[base+0] = float32(img.Pix[off+0]) / 255.0
			dst[base+1] = float32(img.Pix[off+1]) / 255.0
			dst[base+2] = float32(img.Pix[off+2]) / 255.0
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

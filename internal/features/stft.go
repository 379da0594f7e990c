package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/snapquote/internal/errors"
)

const (
	// FFTSize is the analysis window length in samples.
	FFTSize = 2048
	// HopLength is the distance between consecutive frame starts.
	HopLength = 512
	// Bins is the number of non-negative frequency bins per frame.
	Bins = FFTSize/2 + 1
)

// Spectrogram holds the magnitude spectrum of every analysis frame.
type Spectrogram struct {
	SampleRate int
	Magnitude  [][]float64 // [frame][bin]
}

// Frames returns the number of analysis frames.
func (s *Spectrogram) Frames() int { return len(s.Magnitude) }

// Power returns |X|^2 for every frame and bin.
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Magnitude))
	for f, row := range s.Magnitude {
		p := make([]float64, len(row))
		for k, m := range row {
			p[k] = m * m
		}
		out[f] = p
	}
	return out
}

// BinFrequencies returns the centre frequency in Hz of each bin.
func (s *Spectrogram) BinFrequencies() []float64 {
	return binFrequencies(s.SampleRate)
}

func binFrequencies(sampleRate int) []float64 {
	freqs := make([]float64, Bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / FFTSize
	}
	return freqs
}

// Analyze computes a centred short-time Fourier transform of samples using a
// periodic Hann window. The signal is reflect-padded by FFTSize/2 on both
// sides so frame t is centred on sample t*HopLength.
func Analyze(samples []float64, sampleRate int) (*Spectrogram, error) {
	if len(samples) == 0 {
		return nil, errors.Newf("no samples provided").
			Component("features").
			Category(errors.CategoryInvalidInput).
			Build()
	}
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", sampleRate).
			Component("features").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	padded := reflectPad(samples, FFTSize/2)
	frames := 1 + (len(padded)-FFTSize)/HopLength
	window := hannWindow(FFTSize)

	fft := fourier.NewFFT(FFTSize)
	frame := make([]float64, FFTSize)
	coeffs := make([]complex128, Bins)

	mag := make([][]float64, frames)
	for t := range frames {
		start := t * HopLength
		for i := range frame {
			frame[i] = padded[start+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		row := make([]float64, Bins)
		for k, c := range coeffs {
			row[k] = cmplx.Abs(c)
		}
		mag[t] = row
	}

	return &Spectrogram{SampleRate: sampleRate, Magnitude: mag}, nil
}

// hannWindow returns the periodic Hann window used for spectral analysis.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// reflectPad mirrors the signal around its first and last samples without
// repeating the edge sample. Short signals are reflected repeatedly.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i := range out {
		out[i] = x[reflectIndex(i-pad, n)]
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// edgePad repeats the first and last samples.
func edgePad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i := range out {
		j := i - pad
		switch {
		case j < 0:
			j = 0
		case j >= n:
			j = n - 1
		}
		out[i] = x[j]
	}
	return out
}

package features

import "math"

const (
	// RolloffPercent is the energy fraction below the rolloff frequency.
	RolloffPercent = 0.85
	// ChromaBins is the number of pitch classes.
	ChromaBins = 12

	zeroThreshold = 1e-10
	tiny          = 1e-300
)

// SpectralCentroid returns the magnitude-weighted mean frequency per frame.
// Silent frames report 0.
func SpectralCentroid(spec *Spectrogram) []float64 {
	freqs := spec.BinFrequencies()
	out := make([]float64, spec.Frames())
	for t, row := range spec.Magnitude {
		var total, weighted float64
		for k, m := range row {
			total += m
			weighted += m * freqs[k]
		}
		if total > tiny {
			out[t] = weighted / total
		}
	}
	return out
}

// SpectralRolloff returns, per frame, the lowest bin frequency at which the
// cumulative magnitude reaches RolloffPercent of the frame total.
func SpectralRolloff(spec *Spectrogram) []float64 {
	freqs := spec.BinFrequencies()
	out := make([]float64, spec.Frames())
	for t, row := range spec.Magnitude {
		var total float64
		for _, m := range row {
			total += m
		}
		target := RolloffPercent * total

		var cum float64
		for k, m := range row {
			cum += m
			if cum >= target {
				out[t] = freqs[k]
				break
			}
		}
	}
	return out
}

// ZeroCrossingRate returns the fraction of sign changes in each centred
// FFTSize window, edge-padded, advancing by HopLength.
func ZeroCrossingRate(samples []float64) []float64 {
	if len(samples) == 0 {
		return nil
	}

	padded := edgePad(samples, FFTSize/2)
	for i, v := range padded {
		if math.Abs(v) <= zeroThreshold {
			padded[i] = 0
		}
	}

	frames := 1 + (len(padded)-FFTSize)/HopLength
	out := make([]float64, frames)
	for t := range frames {
		frame := padded[t*HopLength : t*HopLength+FFTSize]
		crossings := 0
		for i := 1; i < len(frame); i++ {
			if math.Signbit(frame[i]) != math.Signbit(frame[i-1]) {
				crossings++
			}
		}
		out[t] = float64(crossings) / FFTSize
	}
	return out
}

// Chroma projects the power spectrogram onto ChromaBins pitch classes
// starting at C and scales every frame so its largest class is 1.
func Chroma(spec *Spectrogram) [][]float64 {
	frames := applyBank(chromaFilterBank(spec.SampleRate), spec.Power())
	for _, row := range frames {
		peak := 0.0
		for _, v := range row {
			peak = math.Max(peak, math.Abs(v))
		}
		if peak <= tiny {
			continue
		}
		for i := range row {
			row[i] /= peak
		}
	}
	return frames
}

// chromaFilterBank maps FFT bins onto Gaussian bumps around each pitch class,
// weighted towards the octave around middle C.
func chromaFilterBank(sampleRate int) [][]float64 {
	const (
		nChroma   = float64(ChromaBins)
		centreOct = 5.0
		octWidth  = 2.0
		a440      = 440.0
	)

	// Position of every FFT bin in chroma units; bin 0 sits 1.5 octaves
	// below bin 1 so the DC term gets a finite weight.
	pos := make([]float64, FFTSize)
	for k := 1; k < FFTSize; k++ {
		hz := float64(k) * float64(sampleRate) / FFTSize
		pos[k] = nChroma * math.Log2(hz/(a440/16))
	}
	pos[0] = pos[1] - 1.5*nChroma

	width := make([]float64, FFTSize)
	for k := range FFTSize - 1 {
		width[k] = math.Max(pos[k+1]-pos[k], 1)
	}
	width[FFTSize-1] = 1

	weights := make([][]float64, ChromaBins)
	for c := range weights {
		weights[c] = make([]float64, FFTSize)
	}
	half := math.Round(nChroma / 2)
	for k := range FFTSize {
		var norm float64
		for c := range ChromaBins {
			d := math.Mod(pos[k]-float64(c)+half+10*nChroma, nChroma)
			if d < 0 {
				d += nChroma
			}
			d -= half
			w := math.Exp(-0.5 * math.Pow(2*d/width[k], 2))
			weights[c][k] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		octave := math.Exp(-0.5 * math.Pow((pos[k]/nChroma-centreOct)/octWidth, 2))
		for c := range ChromaBins {
			if norm > tiny {
				weights[c][k] /= norm
			}
			weights[c][k] *= octave
		}
	}

	// Rotate so class 0 is C rather than A.
	bank := make([][]float64, ChromaBins)
	for c := range bank {
		bank[c] = weights[(c+3)%ChromaBins][:Bins]
	}
	return bank
}

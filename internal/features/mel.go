package features

import "math"

// MelBands is the number of mel filters applied before the cepstral transform.
const MelBands = 128

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStep = 200.0 / 3
	melBreakHz    = 1000.0
	melBreakMel   = melBreakHz / melLinearStep
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melBreakHz {
		return hz / melLinearStep
	}
	return melBreakMel + math.Log(hz/melBreakHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melBreakMel {
		return mel * melLinearStep
	}
	return melBreakHz * math.Exp(melLogStep*(mel-melBreakMel))
}

// melFilterBank builds nMels triangular filters spanning 0 Hz to Nyquist,
// each scaled to unit area.
func melFilterBank(nMels, sampleRate int) [][]float64 {
	fftFreqs := binFrequencies(sampleRate)

	lo, hi := hzToMel(0), hzToMel(float64(sampleRate)/2)
	edges := make([]float64, nMels+2)
	for i := range edges {
		edges[i] = melToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	bank := make([][]float64, nMels)
	for m := range nMels {
		left, centre, right := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (right - left)

		filter := make([]float64, Bins)
		for k, f := range fftFreqs {
			rise := (f - left) / (centre - left)
			fall := (right - f) / (right - centre)
			if w := math.Min(rise, fall); w > 0 {
				filter[k] = w * norm
			}
		}
		bank[m] = filter
	}
	return bank
}

// applyBank multiplies every frame by every filter in bank.
func applyBank(bank, frames [][]float64) [][]float64 {
	out := make([][]float64, len(frames))
	for t, frame := range frames {
		row := make([]float64, len(bank))
		for m, filter := range bank {
			var sum float64
			for k, w := range filter {
				if w != 0 {
					sum += w * frame[k]
				}
			}
			row[m] = sum
		}
		out[t] = row
	}
	return out
}

package features

import "math"

const (
	// MFCCCount is the number of cepstral coefficients kept.
	MFCCCount = 13

	amin  = 1e-10
	topDB = 80.0
)

// MFCC returns MFCCCount coefficients per frame.
func MFCC(spec *Spectrogram) [][]float64 {
	mel := applyBank(melFilterBank(MelBands, spec.SampleRate), spec.Power())
	powerToDB(mel)

	out := make([][]float64, len(mel))
	for t, row := range mel {
		out[t] = dctOrtho(row, MFCCCount)
	}
	return out
}

// powerToDB converts power values to decibels in place relative to 1.0 and
// floors everything to topDB below the overall peak.
func powerToDB(frames [][]float64) {
	peak := math.Inf(-1)
	for _, row := range frames {
		for i, v := range row {
			db := 10 * math.Log10(math.Max(amin, v))
			row[i] = db
			peak = math.Max(peak, db)
		}
	}
	floor := peak - topDB
	for _, row := range frames {
		for i, v := range row {
			if v < floor {
				row[i] = floor
			}
		}
	}
}

// dctOrtho computes the first n coefficients of an orthonormal DCT-II.
func dctOrtho(x []float64, n int) []float64 {
	size := float64(len(x))
	out := make([]float64, n)
	for k := range n {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*size))
		}
		if k == 0 {
			out[k] = sum * math.Sqrt(1/size)
		} else {
			out[k] = sum * math.Sqrt(2/size)
		}
	}
	return out
}

package audio

import (
	"fmt"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// getAudioDivisor returns the full-scale value for a PCM bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio file bit depth: %d", bitDepth)
	}
}

// Downmix averages interleaved channels into one.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for f := range frames {
		var sum float32
		for c := range channels {
			sum += interleaved[f*channels+c]
		}
		mono[f] = sum / float32(channels)
	}
	return mono
}

// Truncate keeps at most maxDuration of mono audio at sampleRate.
func Truncate(samples []float32, sampleRate int, maxDuration time.Duration) []float32 {
	if maxDuration <= 0 || sampleRate <= 0 {
		return samples
	}
	limit := int(maxDuration.Seconds() * float64(sampleRate))
	if len(samples) > limit {
		return samples[:limit]
	}
	return samples
}

// Resample converts mono audio between sample rates.
func Resample(samples []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate == toRate || len(samples) == 0 {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudio).
			Context("from_rate", fromRate).
			Context("to_rate", toRate).
			Build()
	}

	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	out, err := r.Process(in)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudio).
			Context("from_rate", fromRate).
			Context("to_rate", toRate).
			Build()
	}

	GetLogger().Debug("resampled audio",
		logger.Int("from_rate", fromRate),
		logger.Int("to_rate", toRate),
		logger.Int("samples_in", len(samples)),
		logger.Int("samples_out", len(out)))

	res := make([]float32, len(out))
	for i, s := range out {
		res[i] = float32(s)
	}
	return res, nil
}

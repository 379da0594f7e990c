// Package audio decodes audio files into mono float32 PCM at a requested
// sample rate.
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// DefaultMaxDuration caps how much of a file is analysed.
const DefaultMaxDuration = 10 * time.Second

// ReadOptions controls decoding.
type ReadOptions struct {
	SampleRate  int           // target rate; 0 keeps the source rate
	MaxDuration time.Duration // 0 disables the cap
}

// Info describes the source stream before conversion.
type Info struct {
	Format     string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Clip is decoded mono audio.
type Clip struct {
	Samples    []float32
	SampleRate int
	Source     Info
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// pcm is interleaved float samples straight from a decoder.
type pcm struct {
	info    Info
	samples []float32
}

// ReadFile decodes a WAV or FLAC file, downmixes it to mono, resamples it to
// opts.SampleRate and truncates it to opts.MaxDuration.
func ReadFile(path string, opts ReadOptions) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf("audio file not found: %s", path).
				Component("audio").
				Category(errors.CategoryInputNotFound).
				FileContext(path, 0).
				Build()
		}
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			GetLogger().Warn("failed to close audio file", logger.Error(cerr))
		}
	}()

	var raw *pcm
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		raw, err = readWAV(file)
	case ".flac":
		raw, err = readFLAC(file)
	default:
		return nil, errors.Newf("unsupported audio format %q", ext).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("extension", ext).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryAudio).
			FileContext(path, 0).
			Build()
	}

	GetLogger().Debug("decoded audio",
		logger.String("format", raw.info.Format),
		logger.Int("sample_rate", raw.info.SampleRate),
		logger.Int("channels", raw.info.Channels),
		logger.Int("bit_depth", raw.info.BitDepth))

	mono := Downmix(raw.samples, raw.info.Channels)
	mono = Truncate(mono, raw.info.SampleRate, opts.MaxDuration)

	rate := raw.info.SampleRate
	if opts.SampleRate > 0 && opts.SampleRate != rate {
		mono, err = Resample(mono, rate, opts.SampleRate)
		if err != nil {
			return nil, err
		}
		rate = opts.SampleRate
		mono = Truncate(mono, rate, opts.MaxDuration)
	}

	return &Clip{Samples: mono, SampleRate: rate, Source: raw.info}, nil
}

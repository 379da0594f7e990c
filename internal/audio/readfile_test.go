package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/snapquote/internal/errors"
)

// writeWAV writes a 16-bit PCM file where channel c carries value(c, frame).
func writeWAV(t *testing.T, path string, sampleRate, channels, frames int, value func(c, f int) float64) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, frames*channels)
	for i := range frames {
		for c := range channels {
			data[i*channels+c] = int(value(c, i) * 32767)
		}
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestReadFileMonoNoResample(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 16000, 1, 8000, func(_, f int) float64 {
		return 0.5 * math.Sin(2*math.Pi*440*float64(f)/16000)
	})

	clip, err := ReadFile(path, ReadOptions{SampleRate: 16000, MaxDuration: DefaultMaxDuration})
	require.NoError(t, err)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.Len(t, clip.Samples, 8000)
	assert.Equal(t, 500*time.Millisecond, clip.Duration())
	assert.Equal(t, Info{Format: "wav", SampleRate: 16000, Channels: 1, BitDepth: 16}, clip.Source)

	for _, s := range clip.Samples {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.51)
	}
}

func TestReadFileStereoDownmixAndCap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 8000, 2, 8000*3, func(c, _ int) float64 {
		if c == 0 {
			return 0.5
		}
		return -0.25
	})

	clip, err := ReadFile(path, ReadOptions{MaxDuration: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 8000, clip.SampleRate)
	assert.Len(t, clip.Samples, 16000)
	assert.InDelta(t, 0.125, clip.Samples[100], 1e-3)
	assert.Equal(t, 2, clip.Source.Channels)
}

func TestReadFileResamples(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hifi.wav")
	writeWAV(t, path, 44100, 2, 44100, func(_, f int) float64 {
		return 0.3 * math.Sin(2*math.Pi*220*float64(f)/44100)
	})

	clip, err := ReadFile(path, ReadOptions{SampleRate: 16000, MaxDuration: DefaultMaxDuration})
	require.NoError(t, err)
	assert.Equal(t, 16000, clip.SampleRate)
	assert.InDelta(t, 16000, len(clip.Samples), 1600)
}

func TestReadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.wav"), ReadOptions{})
	assert.True(t, errors.IsCategory(err, errors.CategoryInputNotFound))

	mp3 := filepath.Join(dir, "clip.mp3")
	require.NoError(t, os.WriteFile(mp3, []byte("ID3"), 0o600))
	_, err = ReadFile(mp3, ReadOptions{})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("not a riff file at all"), 0o600))
	_, err = ReadFile(junk, ReadOptions{})
	assert.True(t, errors.IsCategory(err, errors.CategoryAudio))
}

func TestConversionHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float32{0.5, 1}, Downmix([]float32{0, 1, 1, 1}, 2))
	assert.Equal(t, []float32{1, 2}, Downmix([]float32{1, 2}, 1))

	assert.Len(t, Truncate(make([]float32, 100), 10, 5*time.Second), 50)
	assert.Len(t, Truncate(make([]float32, 100), 10, 0), 100)

	for _, depth := range []int{16, 24, 32} {
		_, err := getAudioDivisor(depth)
		assert.NoError(t, err)
	}
	_, err := getAudioDivisor(8)
	assert.Error(t, err)

	same, err := Resample([]float32{1, 2, 3}, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, same)
}

package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavReadFrames = 16384

func readWAV(r io.ReadSeeker) (*pcm, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
	divisor, err := getAudioDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	info := Info{
		Format:     "wav",
		SampleRate: int(decoder.SampleRate),
		Channels:   channels,
		BitDepth:   int(decoder.BitDepth),
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, wavReadFrames*channels),
		Format: &audio.Format{SampleRate: info.SampleRate, NumChannels: channels},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			samples = append(samples, float32(s)/divisor)
		}
	}

	return &pcm{info: info, samples: samples}, nil
}

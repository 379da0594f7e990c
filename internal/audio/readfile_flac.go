package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

func readFLAC(r io.Reader) (*pcm, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels < 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", decoder.NChannels)
	}

	info := Info{
		Format:     "flac",
		SampleRate: decoder.SampleRate,
		Channels:   decoder.NChannels,
		BitDepth:   decoder.BitsPerSample,
	}

	bytesPerSample := decoder.BitsPerSample / 8
	var samples []float32
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float32(sample)/divisor)
		}
	}

	return &pcm{info: info, samples: samples}, nil
}

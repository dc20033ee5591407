package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// LoadAsMono reads a WAV file and returns it as a mono Signal.
// Samples are normalized to [-1, 1] by the source bit depth and
// multichannel audio is downmixed by averaging the channels.
func LoadAsMono(path string) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("decoding %s: no audio data", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("decoding %s: unsupported bit depth %d", path, bitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))

	numChannels := buf.Format.NumChannels
	if numChannels <= 0 {
		return nil, fmt.Errorf("decoding %s: invalid channel count %d", path, numChannels)
	}

	numFrames := len(buf.Data) / numChannels
	mono := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		sum := 0.0
		for ch := 0; ch < numChannels; ch++ {
			sum += float64(buf.Data[i*numChannels+ch])
		}
		mono[i] = sum / float64(numChannels) / scale
	}

	return &Signal{
		Samples:    mono,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

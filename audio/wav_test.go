package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV encodes interleaved int16 PCM to a temp WAV file.
func writeTestWAV(t *testing.T, data []int, numChannels, sampleRate int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	err = enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}

func TestLoadAsMono(t *testing.T) {
	sampleRate := 16000
	numFrames := 1600
	data := make([]int, numFrames)
	for i := range data {
		data[i] = int(16000.0 * math.Sin(2.0*math.Pi*440.0*float64(i)/float64(sampleRate)))
	}
	path := writeTestWAV(t, data, 1, sampleRate)

	sig, err := LoadAsMono(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRate, sig.SampleRate)
	assert.Len(t, sig.Samples, numFrames)

	for _, v := range sig.Samples {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
	// Peak should sit near 16000/32768.
	peak := 0.0
	for _, v := range sig.Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.InDelta(t, 16000.0/32768.0, peak, 0.01)
}

func TestLoadAsMonoDownmixesStereo(t *testing.T) {
	sampleRate := 16000
	numFrames := 800
	data := make([]int, numFrames*2)
	for i := 0; i < numFrames; i++ {
		data[i*2] = 10000    // left
		data[i*2+1] = -10000 // right
	}
	path := writeTestWAV(t, data, 2, sampleRate)

	sig, err := LoadAsMono(path)
	require.NoError(t, err)
	require.Len(t, sig.Samples, numFrames)

	// Opposite-phase channels cancel in the downmix.
	for _, v := range sig.Samples {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestLoadAsMonoMissingFile(t *testing.T) {
	_, err := LoadAsMono(filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}

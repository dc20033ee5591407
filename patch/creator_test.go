package patch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fighting41love/visqol/spectrogram"
)

// synthSpectrogram builds a deterministic band-major grid.
func synthSpectrogram(numBands, numFrames int) *spectrogram.Spectrogram {
	data := make([][]float64, numBands)
	for b := range data {
		data[b] = make([]float64, numFrames)
		for f := range data[b] {
			data[b][f] = 2.0 + math.Sin(0.37*float64(b+1)*float64(f+1))
		}
	}
	return &spectrogram.Spectrogram{Data: data}
}

func TestImagePatchCreatorExactTiling(t *testing.T) {
	spec := synthSpectrogram(4, 60) // exactly 3 patches of 20
	window := spectrogram.NewAnalysisWindow(16000, 0.25)

	creator := NewImagePatchCreator(20)
	patches, err := creator.Create(spec, window, 16000)
	require.NoError(t, err)
	require.Len(t, patches, 3)

	for i, p := range patches {
		assert.Equal(t, i*20, p.StartFrame)
		assert.Equal(t, 20, p.NumFrames())
		assert.Len(t, p.Data, 4)
	}
}

func TestImagePatchCreatorDiscardsRemainder(t *testing.T) {
	spec := synthSpectrogram(4, 75) // 3 patches of 20, remainder 15 dropped
	window := spectrogram.NewAnalysisWindow(16000, 0.25)

	creator := NewImagePatchCreator(20)
	patches, err := creator.Create(spec, window, 16000)
	require.NoError(t, err)
	assert.Len(t, patches, 3)
}

func TestImagePatchCreatorTimes(t *testing.T) {
	spec := synthSpectrogram(2, 40)
	window := spectrogram.NewAnalysisWindow(16000, 0.25)
	frameDuration := window.FrameDuration(16000)

	creator := NewImagePatchCreator(20)
	patches, err := creator.Create(spec, window, 16000)
	require.NoError(t, err)
	require.Len(t, patches, 2)

	assert.InDelta(t, 0.0, patches[0].StartTime, 1e-12)
	assert.InDelta(t, 20.0*frameDuration, patches[0].EndTime, 1e-12)
	assert.InDelta(t, 20.0*frameDuration, patches[1].StartTime, 1e-12)
	assert.InDelta(t, 40.0*frameDuration, patches[1].EndTime, 1e-12)
}

func TestImagePatchCreatorInvalidSize(t *testing.T) {
	spec := synthSpectrogram(2, 40)
	window := spectrogram.NewAnalysisWindow(16000, 0.25)

	creator := NewImagePatchCreator(0)
	_, err := creator.Create(spec, window, 16000)
	assert.Error(t, err)
}

func TestVADPatchCreatorGatesSilence(t *testing.T) {
	spec := synthSpectrogram(3, 60)
	// First patch voiced, second silent, third voiced.
	activity := make([]float64, 60)
	for i := 0; i < 20; i++ {
		activity[i] = 1.0
	}
	for i := 40; i < 60; i++ {
		activity[i] = 1.0
	}
	spec.VoiceActivity = activity
	window := spectrogram.NewAnalysisWindow(16000, 0.25)

	creator := NewVADPatchCreator(20)
	patches, err := creator.Create(spec, window, 16000)
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, 0, patches[0].StartFrame)
	assert.Equal(t, 40, patches[1].StartFrame)
}

func TestVADPatchCreatorRequiresActivity(t *testing.T) {
	spec := synthSpectrogram(3, 60)
	window := spectrogram.NewAnalysisWindow(16000, 0.25)

	creator := NewVADPatchCreator(20)
	_, err := creator.Create(spec, window, 16000)
	assert.Error(t, err)
}

package spectrogram

import (
	"fmt"
	"math"

	"github.com/fighting41love/visqol/audio"
)

// vadEnergyThreshold is the RMS level below which an analysis frame is
// treated as silence in speech mode.
const vadEnergyThreshold = 0.001

// Builder converts a mono signal into a time-frequency representation.
type Builder interface {
	Build(sig *audio.Signal, window AnalysisWindow) (*Spectrogram, error)
}

// GammatoneBuilder builds spectrograms by running the signal through a
// gammatone filterbank and computing mean power per analysis frame for
// each band. In speech mode it also derives a per-frame voice activity
// sequence consumed by the VAD patch creator.
type GammatoneBuilder struct {
	FilterBank GammatoneFilterBank
	SpeechMode bool
}

// NewGammatoneBuilder creates a spectrogram builder for the given
// filterbank configuration.
func NewGammatoneBuilder(filterBank GammatoneFilterBank, speechMode bool) *GammatoneBuilder {
	return &GammatoneBuilder{
		FilterBank: filterBank,
		SpeechMode: speechMode,
	}
}

// Build produces one energy value per (band, frame). Identical input
// and configuration always produce identical output; there is no
// randomness in this stage.
func (b *GammatoneBuilder) Build(sig *audio.Signal, window AnalysisWindow) (*Spectrogram, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	numFrames := window.NumFrames(len(sig.Samples))
	if numFrames == 0 {
		return nil, fmt.Errorf("signal too short for analysis: %d samples, window %d",
			len(sig.Samples), window.Size)
	}

	filtered := b.FilterBank.Apply(sig.Samples, sig.SampleRate)

	data := make([][]float64, b.FilterBank.NumBands)
	for band, bandSignal := range filtered {
		data[band] = framePower(bandSignal, window, numFrames)
	}

	spec := &Spectrogram{
		Data:        data,
		CenterFreqs: b.FilterBank.CenterFrequencies(sig.SampleRate),
	}

	if b.SpeechMode {
		spec.VoiceActivity = voiceActivity(sig.Samples, window, numFrames)
	}

	return spec, nil
}

// framePower computes the mean power of each analysis frame.
func framePower(samples []float64, window AnalysisWindow, numFrames int) []float64 {
	power := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * window.Hop
		sum := 0.0
		for _, v := range samples[start : start+window.Size] {
			sum += v * v
		}
		power[i] = sum / float64(window.Size)
	}
	return power
}

// voiceActivity marks each frame as voiced (1) or silent (0) based on
// its RMS energy against a fixed threshold.
func voiceActivity(samples []float64, window AnalysisWindow, numFrames int) []float64 {
	activity := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * window.Hop
		sum := 0.0
		for _, v := range samples[start : start+window.Size] {
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(window.Size))
		if rms >= vadEnergyThreshold {
			activity[i] = 1.0
		}
	}
	return activity
}

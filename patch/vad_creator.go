package patch

import (
	"fmt"

	"github.com/fighting41love/visqol/spectrogram"
)

// vadActivityThreshold is the minimum mean voice activity over a
// patch's frames for the patch to be kept.
const vadActivityThreshold = 0.5

// VADPatchCreator tiles like ImagePatchCreator but discards patches
// whose time range the voice-activity signal classifies as silence, so
// the matching stage only scores speech-bearing content.
type VADPatchCreator struct {
	patchSize int
}

// NewVADPatchCreator creates a voice-activity-gated patch creator with
// the given patch width in frames.
func NewVADPatchCreator(patchSize int) *VADPatchCreator {
	return &VADPatchCreator{patchSize: patchSize}
}

// Create tiles the spectrogram and keeps only patches with enough
// voice activity. The spectrogram must carry a voice-activity signal
// (built in speech mode).
func (c *VADPatchCreator) Create(spec *spectrogram.Spectrogram, window spectrogram.AnalysisWindow, sampleRate int) ([]Patch, error) {
	if spec.VoiceActivity == nil {
		return nil, fmt.Errorf("spectrogram carries no voice activity signal")
	}

	tiled, err := tile(spec, c.patchSize, window, sampleRate)
	if err != nil {
		return nil, err
	}

	var patches []Patch
	for _, p := range tiled {
		if c.meanActivity(spec.VoiceActivity, p.StartFrame) >= vadActivityThreshold {
			patches = append(patches, p)
		}
	}
	return patches, nil
}

func (c *VADPatchCreator) meanActivity(activity []float64, startFrame int) float64 {
	sum := 0.0
	for _, v := range activity[startFrame : startFrame+c.patchSize] {
		sum += v
	}
	return sum / float64(c.patchSize)
}

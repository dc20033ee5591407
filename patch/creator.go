package patch

import (
	"fmt"

	"github.com/fighting41love/visqol/spectrogram"
)

// Patch is a fixed-width time-slice of a spectrogram. Data references
// the source spectrogram's band rows; patches are read-only views.
type Patch struct {
	Data       [][]float64
	StartFrame int
	StartTime  float64
	EndTime    float64
}

// NumFrames returns the patch width in frames.
func (p *Patch) NumFrames() int {
	if len(p.Data) == 0 {
		return 0
	}
	return len(p.Data[0])
}

// Creator slices a spectrogram into fixed-width patches along the time
// axis.
type Creator interface {
	Create(spec *spectrogram.Spectrogram, window spectrogram.AnalysisWindow, sampleRate int) ([]Patch, error)
}

// ImagePatchCreator tiles the spectrogram into contiguous
// non-overlapping patches from the start of the time axis. A trailing
// partial tile shorter than the patch width is discarded.
type ImagePatchCreator struct {
	patchSize int
}

// NewImagePatchCreator creates a plain tiling patch creator with the
// given patch width in frames.
func NewImagePatchCreator(patchSize int) *ImagePatchCreator {
	return &ImagePatchCreator{patchSize: patchSize}
}

// Create tiles the spectrogram, recording each patch's absolute start
// and end time in seconds.
func (c *ImagePatchCreator) Create(spec *spectrogram.Spectrogram, window spectrogram.AnalysisWindow, sampleRate int) ([]Patch, error) {
	return tile(spec, c.patchSize, window, sampleRate)
}

func tile(spec *spectrogram.Spectrogram, patchSize int, window spectrogram.AnalysisWindow, sampleRate int) ([]Patch, error) {
	if patchSize < 1 {
		return nil, fmt.Errorf("invalid patch size: %d", patchSize)
	}

	numFrames := spec.NumFrames()
	frameDuration := window.FrameDuration(sampleRate)

	var patches []Patch
	for start := 0; start+patchSize <= numFrames; start += patchSize {
		data := make([][]float64, spec.NumBands())
		for band := range spec.Data {
			data[band] = spec.Data[band][start : start+patchSize]
		}
		patches = append(patches, Patch{
			Data:       data,
			StartFrame: start,
			StartTime:  float64(start) * frameDuration,
			EndTime:    float64(start+patchSize) * frameDuration,
		})
	}
	return patches, nil
}

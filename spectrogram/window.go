package spectrogram

import "math"

// windowDuration is the analysis frame length in seconds. 80 ms frames
// are long enough to capture the temporal envelope the similarity
// measure operates on.
const windowDuration = 0.08

// AnalysisWindow holds the framing parameters derived from a signal's
// sample rate. The hop is the window size scaled by the overlap
// fraction, so an overlap of 0.25 advances frames by a quarter window
// (75% overlap between consecutive frames).
type AnalysisWindow struct {
	Size    int
	Hop     int
	Overlap float64
}

// NewAnalysisWindow derives framing parameters from a sample rate and
// an overlap fraction.
func NewAnalysisWindow(sampleRate int, overlap float64) AnalysisWindow {
	size := int(math.Round(windowDuration * float64(sampleRate)))
	hop := int(math.Round(float64(size) * overlap))
	if hop < 1 {
		hop = 1
	}
	return AnalysisWindow{
		Size:    size,
		Hop:     hop,
		Overlap: overlap,
	}
}

// FrameDuration returns the hop length in seconds, the time between
// consecutive spectrogram frames.
func (w AnalysisWindow) FrameDuration(sampleRate int) float64 {
	return float64(w.Hop) / float64(sampleRate)
}

// NumFrames returns how many full analysis frames fit in a signal of
// the given length.
func (w AnalysisWindow) NumFrames(numSamples int) int {
	if numSamples < w.Size {
		return 0
	}
	return (numSamples-w.Size)/w.Hop + 1
}

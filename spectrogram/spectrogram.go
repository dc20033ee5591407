package spectrogram

import "math"

// dbEpsilon keeps the log conversion defined for silent frames.
const dbEpsilon = 1e-20

// Spectrogram is a band-major time-frequency grid of energy values:
// Data[band][frame]. CenterFreqs holds the filterbank center frequency
// of each band in ascending order. VoiceActivity, present only when
// built in speech mode, holds one activity value per frame in [0, 1].
type Spectrogram struct {
	Data          [][]float64
	CenterFreqs   []float64
	VoiceActivity []float64
}

// NumBands returns the band count.
func (s *Spectrogram) NumBands() int {
	return len(s.Data)
}

// NumFrames returns the time-frame count.
func (s *Spectrogram) NumFrames() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

// ConvertToDecibels maps the energy grid to a dB scale in place.
func (s *Spectrogram) ConvertToDecibels() {
	for _, band := range s.Data {
		for i, v := range band {
			band[i] = 10.0 * math.Log10(v+dbEpsilon)
		}
	}
}

// Minimum returns the smallest value in the grid.
func (s *Spectrogram) Minimum() float64 {
	minVal := math.Inf(1)
	for _, band := range s.Data {
		for _, v := range band {
			if v < minVal {
				minVal = v
			}
		}
	}
	return minVal
}

// subtractFloor shifts every value down by floor.
func (s *Spectrogram) subtractFloor(floor float64) {
	for _, band := range s.Data {
		for i := range band {
			band[i] -= floor
		}
	}
}

// NormalizeFloor shifts both spectrograms by their joint minimum so
// that values in both grids share a common non-negative floor. The
// similarity measure compares intensity envelopes; a shared floor
// keeps its stabilizing constants meaningful for both inputs.
func NormalizeFloor(ref, deg *Spectrogram) {
	floor := math.Min(ref.Minimum(), deg.Minimum())
	ref.subtractFloor(floor)
	deg.subtractFloor(floor)
}

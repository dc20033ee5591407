package audio

import (
	"fmt"
	"math"
)

// Signal is a mono audio signal: a sample sequence plus its sample rate.
// The comparison pipeline only consumes mono signals; multichannel input
// is downmixed at load time.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Validate checks the invariants the pipeline relies on.
func (s *Signal) Validate() error {
	if s == nil {
		return fmt.Errorf("signal is nil")
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", s.SampleRate)
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("signal has no samples")
	}
	return nil
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// RMS returns the root mean square amplitude of the signal.
func (s *Signal) RMS() float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.Samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(s.Samples)))
}

// ScaleToMatchSoundPressureLevel returns a copy of deg rescaled so its
// RMS level matches ref. Level differences introduced by a codec or
// processing chain would otherwise dominate the spectral comparison.
// If either signal is silent the degraded signal is returned unscaled.
func ScaleToMatchSoundPressureLevel(ref, deg *Signal) *Signal {
	refRMS := ref.RMS()
	degRMS := deg.RMS()

	scaled := &Signal{
		Samples:    make([]float64, len(deg.Samples)),
		SampleRate: deg.SampleRate,
	}

	if refRMS == 0 || degRMS == 0 {
		copy(scaled.Samples, deg.Samples)
		return scaled
	}

	factor := refRMS / degRMS
	for i, v := range deg.Samples {
		scaled.Samples[i] = v * factor
	}
	return scaled
}

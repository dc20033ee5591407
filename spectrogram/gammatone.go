package spectrogram

import (
	"math"
	"math/cmplx"
)

// Glasberg & Moore ERB scale parameters
const (
	earQ  = 9.26449
	minBW = 24.7
)

// GammatoneFilterBank models cochlear frequency selectivity with a bank
// of 4th-order gammatone band-pass filters. Center frequencies are
// spaced on the ERB scale between MinFreq and the Nyquist frequency.
//
// Each filter uses Slaney's all-pole gammatone approximation: four
// cascaded second-order sections, implemented in Direct Form II.
// Reference: Slaney, M. (1993). "An Efficient Implementation of the
// Patterson-Holdsworth Auditory Filter Bank".
type GammatoneFilterBank struct {
	NumBands int
	MinFreq  float64
}

// CenterFrequencies returns the ERB-spaced center frequencies in
// ascending order. The spacing follows the ERB scale so that adjacent
// filters overlap the way auditory channels do.
func (fb GammatoneFilterBank) CenterFrequencies(sampleRate int) []float64 {
	low := fb.MinFreq
	high := float64(sampleRate) / 2.0
	c := earQ * minBW

	step := (math.Log(low+c) - math.Log(high+c)) / float64(fb.NumBands)
	freqs := make([]float64, fb.NumBands)
	for i := 1; i <= fb.NumBands; i++ {
		cf := -c + math.Exp(float64(i)*step)*(high+c)
		// Fill in descending, then index from the back for ascending order.
		freqs[fb.NumBands-i] = cf
	}
	return freqs
}

// Apply filters the signal through every band and returns the filtered
// outputs, band-major, in ascending center-frequency order.
func (fb GammatoneFilterBank) Apply(samples []float64, sampleRate int) [][]float64 {
	freqs := fb.CenterFrequencies(sampleRate)
	out := make([][]float64, fb.NumBands)
	for i, cf := range freqs {
		filter := newGammatoneFilter(cf, sampleRate)
		out[i] = filter.processBuffer(samples)
	}
	return out
}

// biquadSection is one second-order section in Direct Form II.
type biquadSection struct {
	b0, b1, b2 float64 // numerator
	a1, a2     float64 // denominator (a0 normalized to 1)
	w1, w2     float64 // delay line
}

func (s *biquadSection) process(x float64) float64 {
	w := x - s.a1*s.w1 - s.a2*s.w2
	y := s.b0*w + s.b1*s.w1 + s.b2*s.w2
	s.w2 = s.w1
	s.w1 = w
	return y
}

// response returns the section's complex frequency response at the
// normalized angular frequency w.
func (s *biquadSection) response(w float64) complex128 {
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(s.b0, 0) + complex(s.b1, 0)*z1 + complex(s.b2, 0)*z2
	den := complex(1, 0) + complex(s.a1, 0)*z1 + complex(s.a2, 0)*z2
	return num / den
}

// gammatoneFilter is a 4th-order gammatone filter: four cascaded
// second-order sections sharing one pole pair per section.
type gammatoneFilter struct {
	sections [4]biquadSection
}

func newGammatoneFilter(centerFreq float64, sampleRate int) *gammatoneFilter {
	t := 1.0 / float64(sampleRate)
	erb := centerFreq/earQ + minBW
	b := 1.019 * 2.0 * math.Pi * erb

	arg := 2.0 * math.Pi * centerFreq * t
	cosArg := math.Cos(arg)
	sinArg := math.Sin(arg)
	expBT := math.Exp(b * t)

	// Shared denominator for all four sections
	a1 := -2.0 * cosArg / expBT
	a2 := math.Exp(-2.0 * b * t)

	// Per-section numerator zeros (Slaney's design)
	k1 := math.Sqrt(3.0 + math.Pow(2.0, 1.5))
	k2 := math.Sqrt(3.0 - math.Pow(2.0, 1.5))
	zeros := [4]float64{
		-(2.0*t*cosArg/expBT + 2.0*k1*t*sinArg/expBT) / 2.0,
		-(2.0*t*cosArg/expBT - 2.0*k1*t*sinArg/expBT) / 2.0,
		-(2.0*t*cosArg/expBT + 2.0*k2*t*sinArg/expBT) / 2.0,
		-(2.0*t*cosArg/expBT - 2.0*k2*t*sinArg/expBT) / 2.0,
	}

	f := &gammatoneFilter{}
	for i := range f.sections {
		f.sections[i] = biquadSection{
			b0: t,
			b1: zeros[i],
			b2: 0,
			a1: a1,
			a2: a2,
		}
	}

	// Normalize the cascade to unity gain at the center frequency.
	gain := f.magnitudeAt(arg)
	if gain > 0 {
		f.sections[0].b0 /= gain
		f.sections[0].b1 /= gain
		f.sections[0].b2 /= gain
	}
	return f
}

// magnitudeAt evaluates the cascade's magnitude response at the
// normalized angular frequency w.
func (f *gammatoneFilter) magnitudeAt(w float64) float64 {
	h := complex(1, 0)
	for i := range f.sections {
		h *= f.sections[i].response(w)
	}
	return cmplx.Abs(h)
}

func (f *gammatoneFilter) processBuffer(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, x := range samples {
		y := x
		for s := range f.sections {
			y = f.sections[s].process(y)
		}
		out[i] = y
	}
	return out
}

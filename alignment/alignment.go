package alignment

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/fighting41love/visqol/audio"
)

// GloballyAlign estimates the constant delay between the reference and
// degraded signals and returns a time-shifted copy of the degraded
// signal, together with the lag in samples. A positive lag means the
// degraded content arrives late (e.g. encoder look-ahead padding) and
// is trimmed from the front; a negative lag is compensated by
// zero-padding the front. Sample rate is never altered. When no
// reliable lag can be found the degraded signal is returned unshifted.
func GloballyAlign(ref, deg *audio.Signal) (*audio.Signal, int) {
	lag := BestLag(ref.Samples, deg.Samples)

	aligned := &audio.Signal{SampleRate: deg.SampleRate}
	switch {
	case lag > 0:
		aligned.Samples = make([]float64, len(deg.Samples)-lag)
		copy(aligned.Samples, deg.Samples[lag:])
	case lag < 0:
		aligned.Samples = make([]float64, len(deg.Samples)-lag)
		copy(aligned.Samples[-lag:], deg.Samples)
	default:
		aligned.Samples = make([]float64, len(deg.Samples))
		copy(aligned.Samples, deg.Samples)
	}
	return aligned, lag
}

// BestLag returns the lag of deg relative to ref that maximizes their
// cross-correlation. A positive result means deg is delayed by that
// many samples. Computed in the frequency domain: FFT of both signals,
// conjugate product, inverse FFT, peak pick over the valid lag range.
// Returns 0 when the correlation peak is not positive (degenerate or
// silent input).
func BestLag(ref, deg []float64) int {
	if len(ref) == 0 || len(deg) == 0 {
		return 0
	}

	// Zero-mean both signals so DC offsets do not bias the peak.
	refZM := zeroMean(ref)
	degZM := zeroMean(deg)

	n := nextPowerOfTwo(len(ref) + len(deg) - 1)
	refPad := make([]float64, n)
	degPad := make([]float64, n)
	copy(refPad, refZM)
	copy(degPad, degZM)

	refFFT := fft.FFTReal(refPad)
	degFFT := fft.FFTReal(degPad)

	cross := make([]complex128, n)
	for i := range cross {
		cross[i] = degFFT[i] * cmplx.Conj(refFFT[i])
	}
	corr := fft.IFFT(cross)

	// Index k holds the correlation for deg delayed by k samples;
	// negative lags wrap around to the top of the buffer.
	maxPosLag := len(deg) - 1
	maxNegLag := len(ref) - 1

	bestLag := 0
	bestVal := math.Inf(-1)
	for lag := -maxNegLag; lag <= maxPosLag; lag++ {
		idx := lag
		if idx < 0 {
			idx += n
		}
		v := real(corr[idx])
		if v > bestVal {
			bestVal = v
			bestLag = lag
		}
	}

	if bestVal <= 0 {
		return 0
	}
	return bestLag
}

func zeroMean(x []float64) []float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

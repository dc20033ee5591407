package patch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/fighting41love/visqol/similarity"
	"github.com/fighting41love/visqol/spectrogram"
)

// Match pairs one reference patch with the best-matching slice of the
// degraded spectrogram, with the similarity that selected it.
type Match struct {
	RefPatch      Patch
	DegStartFrame int
	DegStartTime  float64
	DegEndTime    float64
	Similarity    float64
	FreqBandMeans []float64
}

// ComparisonPatchesSelector searches the degraded spectrogram for the
// most similar same-width patch for each reference patch. Candidates
// are limited to start frames within one patch width of the reference
// patch's own position; after global alignment a good match cannot be
// further away, and the bound keeps the search cost linear in the
// patch width.
//
// This is the dominant cost center of a comparison, so candidate
// statistics are maintained incrementally: per-band prefix sums over
// the degraded spectrogram give each candidate window's mean and
// variance in constant time, and only the covariance against the
// reference patch is accumulated per candidate.
type ComparisonPatchesSelector struct {
	measure similarity.Comparator
}

// NewComparisonPatchesSelector creates a selector that scores
// candidates with the given similarity measure.
func NewComparisonPatchesSelector(measure similarity.Comparator) *ComparisonPatchesSelector {
	return &ComparisonPatchesSelector{measure: measure}
}

// FindMostSimilar matches every reference patch against the degraded
// spectrogram. Ties on similarity are broken in favor of the candidate
// closest in time to the reference patch's own position.
func (s *ComparisonPatchesSelector) FindMostSimilar(refPatches []Patch, deg *spectrogram.Spectrogram,
	window spectrogram.AnalysisWindow, sampleRate int) ([]Match, error) {

	if len(refPatches) == 0 {
		return nil, fmt.Errorf("no reference patches to match")
	}

	numBands := deg.NumBands()
	if len(refPatches[0].Data) != numBands {
		return nil, fmt.Errorf("band count mismatch: patches have %d, degraded spectrogram has %d",
			len(refPatches[0].Data), numBands)
	}

	degStats := newSlidingStats(deg.Data)
	frameDuration := window.FrameDuration(sampleRate)

	matches := make([]Match, 0, len(refPatches))
	for i := range refPatches {
		match, err := s.bestCandidate(&refPatches[i], deg, degStats)
		if err != nil {
			return nil, fmt.Errorf("matching patch %d: %w", i, err)
		}
		match.DegStartTime = float64(match.DegStartFrame) * frameDuration
		match.DegEndTime = float64(match.DegStartFrame+refPatches[i].NumFrames()) * frameDuration
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *ComparisonPatchesSelector) bestCandidate(ref *Patch, deg *spectrogram.Spectrogram,
	degStats *slidingStats) (Match, error) {

	width := ref.NumFrames()
	numFrames := deg.NumFrames()
	if width > numFrames {
		return Match{}, fmt.Errorf("patch width %d exceeds degraded spectrogram length %d", width, numFrames)
	}

	// Reference patch statistics are fixed across all candidates.
	refMeans := make([]float64, len(ref.Data))
	refVars := make([]float64, len(ref.Data))
	for band, r := range ref.Data {
		refMeans[band], refVars[band] = meanVariance(r)
	}

	lo := max(ref.StartFrame-width, 0)
	hi := min(ref.StartFrame+width, numFrames-width)
	if lo > hi {
		// Degraded spectrogram ends before the search window starts;
		// fall back to the last valid candidate position.
		lo = hi
	}

	best := Match{RefPatch: *ref, Similarity: math.Inf(-1)}
	var bestBands []float64
	bands := make([]float64, len(ref.Data))

	for c := lo; c <= hi; c++ {
		for band, r := range ref.Data {
			d := deg.Data[band][c : c+width]
			mean, variance := degStats.meanVariance(band, c, width)
			cov := covariance(r, d, refMeans[band], mean)
			bands[band] = s.measure.FromMoments(similarity.BandMoments{
				MeanRef: refMeans[band],
				MeanDeg: mean,
				VarRef:  refVars[band],
				VarDeg:  variance,
				Cov:     cov,
			})
		}
		score := floats.Sum(bands) / float64(len(bands))

		better := score > best.Similarity
		equalButCloser := score == best.Similarity &&
			abs(c-ref.StartFrame) < abs(best.DegStartFrame-ref.StartFrame)
		if better || equalButCloser {
			best.Similarity = score
			best.DegStartFrame = c
			if bestBands == nil {
				bestBands = make([]float64, len(bands))
			}
			copy(bestBands, bands)
		}
	}

	best.FreqBandMeans = bestBands
	return best, nil
}

// slidingStats holds per-band prefix sums over a spectrogram so any
// window's mean and variance can be read in constant time.
type slidingStats struct {
	sum   [][]float64
	sumSq [][]float64
}

func newSlidingStats(data [][]float64) *slidingStats {
	st := &slidingStats{
		sum:   make([][]float64, len(data)),
		sumSq: make([][]float64, len(data)),
	}
	for band, row := range data {
		st.sum[band] = make([]float64, len(row)+1)
		st.sumSq[band] = make([]float64, len(row)+1)
		for i, v := range row {
			st.sum[band][i+1] = st.sum[band][i] + v
			st.sumSq[band][i+1] = st.sumSq[band][i] + v*v
		}
	}
	return st
}

// meanVariance returns the sample mean and variance of the window
// [start, start+width) for one band.
func (st *slidingStats) meanVariance(band, start, width int) (float64, float64) {
	s := st.sum[band][start+width] - st.sum[band][start]
	sq := st.sumSq[band][start+width] - st.sumSq[band][start]
	n := float64(width)
	mean := s / n
	variance := (sq - s*s/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

func meanVariance(x []float64) (float64, float64) {
	n := float64(len(x))
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	mean := sum / n

	ssq := 0.0
	for _, v := range x {
		d := v - mean
		ssq += d * d
	}
	return mean, ssq / (n - 1)
}

// covariance returns the sample covariance of two equal-length windows
// given their precomputed means.
func covariance(r, d []float64, meanR, meanD float64) float64 {
	dot := 0.0
	for i := range r {
		dot += r[i] * d[i]
	}
	n := float64(len(r))
	return (dot - n*meanR*meanD) / (n - 1)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stabilizing constants follow the SSIM convention, scaled by the
// intensity range of a dB spectrogram.
const (
	intensityRange = 160.0
	c1             = (0.01 * intensityRange) * (0.01 * intensityRange)
	c3             = (0.03 * intensityRange) * (0.03 * intensityRange) / 2.0
)

// Result holds the similarity between two equally-shaped patches: a
// scalar score plus the per-band index values it was averaged from.
type Result struct {
	Score     float64   `json:"score"`
	BandMeans []float64 `json:"band_means"`
}

// BandMoments are the sufficient statistics for one band's similarity
// index: local means, variances and covariance of the reference and
// degraded energy sequences over the patch width.
type BandMoments struct {
	MeanRef float64
	MeanDeg float64
	VarRef  float64
	VarDeg  float64
	Cov     float64
}

// Comparator scores the perceptual similarity of two patches. The
// moments form lets callers that maintain sliding statistics avoid
// recomputing full band sequences per candidate.
type Comparator interface {
	Compare(ref, deg [][]float64) (*Result, error)
	FromMoments(m BandMoments) float64
}

// NeurogramSimilarityIndexMeasure computes a structural-similarity
// index over auditory-band energy envelopes instead of pixel
// intensities. For each band it combines a luminance term (local mean
// agreement) with a structure term (covariance against the geometric
// mean of the variances); the patch score is the mean across bands.
// Identical patches score 1.0.
type NeurogramSimilarityIndexMeasure struct{}

// NewNeurogramSimilarityIndexMeasure creates an NSIM comparator.
func NewNeurogramSimilarityIndexMeasure() *NeurogramSimilarityIndexMeasure {
	return &NeurogramSimilarityIndexMeasure{}
}

// Compare computes the NSIM between two band-major patches of equal
// shape.
func (n *NeurogramSimilarityIndexMeasure) Compare(ref, deg [][]float64) (*Result, error) {
	if len(ref) == 0 || len(ref) != len(deg) {
		return nil, fmt.Errorf("patch band counts differ: %d vs %d", len(ref), len(deg))
	}

	bandMeans := make([]float64, len(ref))
	for band := range ref {
		r, d := ref[band], deg[band]
		if len(r) != len(d) {
			return nil, fmt.Errorf("band %d widths differ: %d vs %d", band, len(r), len(d))
		}
		if len(r) < 2 {
			return nil, fmt.Errorf("band %d too narrow: %d frames", band, len(r))
		}

		m := BandMoments{
			MeanRef: stat.Mean(r, nil),
			MeanDeg: stat.Mean(d, nil),
			VarRef:  stat.Variance(r, nil),
			VarDeg:  stat.Variance(d, nil),
			Cov:     stat.Covariance(r, d, nil),
		}
		bandMeans[band] = n.FromMoments(m)
	}

	return &Result{
		Score:     floats.Sum(bandMeans) / float64(len(bandMeans)),
		BandMeans: bandMeans,
	}, nil
}

// FromMoments computes one band's similarity index from its sufficient
// statistics.
func (n *NeurogramSimilarityIndexMeasure) FromMoments(m BandMoments) float64 {
	luminance := (2.0*m.MeanRef*m.MeanDeg + c1) /
		(m.MeanRef*m.MeanRef + m.MeanDeg*m.MeanDeg + c1)

	sigma := geometricStdDev(m.VarRef, m.VarDeg)
	structure := (m.Cov + c3) / (sigma + c3)

	return luminance * structure
}

// geometricStdDev returns sqrt(varA * varB), guarding tiny negative
// variances from accumulated floating-point error.
func geometricStdDev(varA, varB float64) float64 {
	prod := varA * varB
	if prod <= 0 {
		return 0
	}
	return math.Sqrt(prod)
}

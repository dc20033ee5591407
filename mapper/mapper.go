package mapper

// MOS-LQO scores are bounded to the standard 5-point opinion scale.
const (
	MinMOS = 1.0
	MaxMOS = 5.0
)

// SimilarityToQualityMapper maps an aggregate similarity score onto
// the MOS-LQO scale. Init must succeed before PredictQuality is
// called; after that, PredictQuality is a pure function of its inputs.
type SimilarityToQualityMapper interface {
	Init() error

	// PredictQuality maps the overall similarity and the per-band mean
	// similarity vector to a quality score in [MinMOS, MaxMOS].
	PredictQuality(similarity float64, bandSimilarities []float64) float64
}

func clampMOS(score float64) float64 {
	if score < MinMOS {
		return MinMOS
	}
	if score > MaxMOS {
		return MaxMOS
	}
	return score
}

package mapper

import "math"

// Logistic transfer tuned for the similarity distribution of
// speech-mode patch comparisons.
const (
	speechSlope    = 17.4
	speechMidpoint = 0.84
)

// SpeechMapper maps similarity to MOS-LQO with a fixed closed-form
// transfer function; no model file is involved. The scaled variant
// rescales the transfer so a perfect similarity of 1.0 maps to the
// full 5.0 score; unscaled output keeps the raw transfer value.
type SpeechMapper struct {
	scaled bool
}

// NewSpeechMapper creates a speech-mode quality mapper. Pass scaled =
// false for the unscaled variant.
func NewSpeechMapper(scaled bool) *SpeechMapper {
	return &SpeechMapper{scaled: scaled}
}

// Init is a no-op; the speech transfer is fully defined by constants.
func (m *SpeechMapper) Init() error {
	return nil
}

// PredictQuality maps similarity through the logistic transfer. The
// per-band vector is unused by the closed-form strategy.
func (m *SpeechMapper) PredictQuality(similarity float64, bandSimilarities []float64) float64 {
	quality := transfer(similarity)
	if m.scaled {
		// Stretch so transfer(1.0) reaches the top of the scale.
		scale := (MaxMOS - MinMOS) / (transfer(1.0) - MinMOS)
		quality = MinMOS + (quality-MinMOS)*scale
	}
	return clampMOS(quality)
}

func transfer(similarity float64) float64 {
	return MinMOS + (MaxMOS-MinMOS)/(1.0+math.Exp(-speechSlope*(similarity-speechMidpoint)))
}

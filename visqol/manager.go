package visqol

import (
	"errors"
	"fmt"
	"math"

	"github.com/fighting41love/visqol/alignment"
	"github.com/fighting41love/visqol/audio"
	"github.com/fighting41love/visqol/logging"
	"github.com/fighting41love/visqol/mapper"
	"github.com/fighting41love/visqol/patch"
	"github.com/fighting41love/visqol/similarity"
	"github.com/fighting41love/visqol/spectrogram"
)

// Pipeline configuration. These are fixed by the perceptual model the
// quality mappers were tuned against and are not user-tunable.
const (
	patchSizeAudio  = 30
	patchSizeSpeech = 20

	numBandsAudio  = 32
	numBandsSpeech = 21
	minimumFreq    = 50.0 // Hz, wideband

	windowOverlap = 0.25

	durationMismatchTolerance = 1.0 // seconds

	speechSampleRateWarn    = 16000
	audioSampleRateExpected = 48000
)

// Manager owns the comparison pipeline: the spectrogram builder, patch
// creator, patch selector and quality mapper are configured once by
// Init and reused across comparisons. A Manager is safe for repeated
// sequential use; concurrent comparisons on independent signal pairs
// are safe once Init has completed, since comparisons only read the
// shared configuration.
type Manager struct {
	speechMode        bool
	unscaledSpeechMOS bool

	patchSize     int
	builder       spectrogram.Builder
	patchCreator  patch.Creator
	patchSelector *patch.ComparisonPatchesSelector
	simToQuality  mapper.SimilarityToQualityMapper

	initialized bool
	logger      logging.Logger
}

// NewManager creates an uninitialized Manager. Init must be called
// before any comparison.
func NewManager() *Manager {
	return &Manager{
		logger: logging.WithFields(logging.Fields{
			"component": "visqol_manager",
		}),
	}
}

// Init configures the pipeline for the chosen mode. Speech mode uses
// 20-frame patches, voice-activity-gated patch creation, a 21-band
// filterbank and the closed-form speech quality mapping; full-audio
// mode uses 30-frame patches, plain tiling, 32 bands and the SVR
// model at modelPath. A missing or malformed model is a fatal error:
// the Manager stays unusable.
func (m *Manager) Init(modelPath string, speechMode, unscaledSpeechMOS bool) error {
	m.speechMode = speechMode
	m.unscaledSpeechMOS = unscaledSpeechMOS

	m.initPatchCreator()
	m.initPatchSelector()
	m.initSpectrogramBuilder()

	if err := m.initSimilarityToQualityMapper(modelPath); err != nil {
		m.logger.Error(err, "Failed to initialize similarity-to-quality mapper")
		return err
	}

	m.initialized = true
	return nil
}

func (m *Manager) initPatchCreator() {
	if m.speechMode {
		m.patchSize = patchSizeSpeech
		m.patchCreator = patch.NewVADPatchCreator(patchSizeSpeech)
	} else {
		m.patchSize = patchSizeAudio
		m.patchCreator = patch.NewImagePatchCreator(patchSizeAudio)
	}
}

func (m *Manager) initPatchSelector() {
	m.patchSelector = patch.NewComparisonPatchesSelector(
		similarity.NewNeurogramSimilarityIndexMeasure())
}

func (m *Manager) initSpectrogramBuilder() {
	if m.speechMode {
		m.builder = spectrogram.NewGammatoneBuilder(
			spectrogram.GammatoneFilterBank{NumBands: numBandsSpeech, MinFreq: minimumFreq}, true)
	} else {
		m.builder = spectrogram.NewGammatoneBuilder(
			spectrogram.GammatoneFilterBank{NumBands: numBandsAudio, MinFreq: minimumFreq}, false)
	}
}

func (m *Manager) initSimilarityToQualityMapper(modelPath string) error {
	if m.speechMode {
		m.simToQuality = mapper.NewSpeechMapper(!m.unscaledSpeechMOS)
	} else {
		m.simToQuality = mapper.NewSVRMapper(modelPath)
	}
	return m.simToQuality.Init()
}

// Compare runs the full pipeline on an in-memory signal pair.
func (m *Manager) Compare(ref, deg *audio.Signal) (*Result, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	if err := m.validateInput(ref, deg); err != nil {
		return nil, err
	}

	// Compensate for constant codec/processing delay before any
	// frequency-domain comparison.
	alignedDeg, lag := alignment.GloballyAlign(ref, deg)
	if lag != 0 {
		m.logger.Debug("Aligned degraded signal", logging.Fields{
			"lag_samples": lag,
			"lag_seconds": float64(lag) / float64(deg.SampleRate),
		})
	}

	window := spectrogram.NewAnalysisWindow(ref.SampleRate, windowOverlap)

	return calculateSimilarity(ref, alignedDeg, m.builder, window,
		m.patchCreator, m.patchSelector, m.simToQuality)
}

// CompareFiles loads both WAV files as mono, matches the degraded
// signal's sound pressure level to the reference, runs Compare, and
// records both paths on the result.
func (m *Manager) CompareFiles(refPath, degPath string) (*Result, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	ref, err := audio.LoadAsMono(refPath)
	if err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}
	deg, err := audio.LoadAsMono(degPath)
	if err != nil {
		return nil, fmt.Errorf("loading degraded: %w", err)
	}
	deg = audio.ScaleToMatchSoundPressureLevel(ref, deg)

	result, err := m.Compare(ref, deg)
	if err != nil {
		return nil, err
	}
	result.ReferenceFile = refPath
	result.DegradedFile = degPath
	return result, nil
}

// CompareBatch applies CompareFiles to every pair in order. Pairs that
// fail individually are logged and omitted from the returned slice;
// ErrNotInitialized aborts the remainder of the batch immediately.
func (m *Manager) CompareBatch(pairs []FilePair) []Result {
	results := make([]Result, 0, len(pairs))
	for _, pair := range pairs {
		result, err := m.CompareFiles(pair.Reference, pair.Degraded)
		if err != nil {
			m.logger.Error(err, "Error comparing signal pair", logging.Fields{
				"reference": pair.Reference,
				"degraded":  pair.Degraded,
			})
			if errors.Is(err, ErrNotInitialized) {
				break
			}
			continue
		}
		results = append(results, *result)
	}
	return results
}

// validateInput enforces the sample-rate invariant and logs the
// advisory checks. Warnings never alter the computed result.
func (m *Manager) validateInput(ref, deg *audio.Signal) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("reference signal: %w", err)
	}
	if err := deg.Validate(); err != nil {
		return fmt.Errorf("degraded signal: %w", err)
	}

	refDuration := ref.Duration()
	degDuration := deg.Duration()
	if math.Abs(refDuration-degDuration) > durationMismatchTolerance {
		m.logger.Warn("Mismatch in duration between reference and degraded signal", logging.Fields{
			"reference_seconds": refDuration,
			"degraded_seconds":  degDuration,
		})
	}

	if ref.SampleRate != deg.SampleRate {
		return &SampleRateMismatchError{Reference: ref.SampleRate, Degraded: deg.SampleRate}
	}

	if m.speechMode {
		if ref.SampleRate > speechSampleRateWarn {
			m.logger.Warn("Sample rate is above 16kHz, which may have undesired effects "+
				"in speech mode; consider resampling to 16kHz", logging.Fields{
				"sample_rate": ref.SampleRate,
			})
		}
	} else {
		if ref.SampleRate != audioSampleRateExpected {
			m.logger.Warn("Input audio does not have the expected 48kHz sample rate; "+
				"this may negatively affect the predicted MOS-LQO score", logging.Fields{
				"sample_rate": ref.SampleRate,
			})
		}
	}

	return nil
}

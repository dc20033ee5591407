package visqol

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/fighting41love/visqol/audio"
	"github.com/fighting41love/visqol/mapper"
	"github.com/fighting41love/visqol/patch"
	"github.com/fighting41love/visqol/spectrogram"
)

// calculateSimilarity runs the spectral half of the pipeline: build
// both spectrograms, patch the reference, match against the degraded
// spectrogram, aggregate, and map to MOS-LQO. Signals must already be
// validated and aligned.
func calculateSimilarity(ref, deg *audio.Signal, builder spectrogram.Builder,
	window spectrogram.AnalysisWindow, creator patch.Creator,
	selector *patch.ComparisonPatchesSelector,
	qualityMapper mapper.SimilarityToQualityMapper) (*Result, error) {

	refSpec, err := builder.Build(ref, window)
	if err != nil {
		return nil, fmt.Errorf("building reference spectrogram: %w", err)
	}
	degSpec, err := builder.Build(deg, window)
	if err != nil {
		return nil, fmt.Errorf("building degraded spectrogram: %w", err)
	}

	refSpec.ConvertToDecibels()
	degSpec.ConvertToDecibels()
	spectrogram.NormalizeFloor(refSpec, degSpec)

	refPatches, err := creator.Create(refSpec, window, ref.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("creating reference patches: %w", err)
	}
	if len(refPatches) == 0 {
		return nil, fmt.Errorf("reference signal produced no patches to compare")
	}

	matches, err := selector.FindMostSimilar(refPatches, degSpec, window, ref.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("selecting degraded patches: %w", err)
	}

	numBands := refSpec.NumBands()
	vnsim := 0.0
	fvnsim := make([]float64, numBands)
	patchSims := make([]PatchSimilarity, 0, len(matches))

	for _, m := range matches {
		vnsim += m.Similarity
		floats.Add(fvnsim, m.FreqBandMeans)
		patchSims = append(patchSims, PatchSimilarity{
			Similarity:        m.Similarity,
			RefPatchStartTime: m.RefPatch.StartTime,
			RefPatchEndTime:   m.RefPatch.EndTime,
			DegPatchStartTime: m.DegStartTime,
			DegPatchEndTime:   m.DegEndTime,
			FreqBandMeans:     m.FreqBandMeans,
		})
	}
	vnsim /= float64(len(matches))
	floats.Scale(1.0/float64(len(matches)), fvnsim)

	return &Result{
		MOSLQO:          qualityMapper.PredictQuality(vnsim, fvnsim),
		VNSIM:           vnsim,
		FVNSIM:          fvnsim,
		CenterFreqBands: refSpec.CenterFreqs,
		PatchSims:       patchSims,
	}, nil
}

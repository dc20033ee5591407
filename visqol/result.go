package visqol

// Result aggregates one reference/degraded comparison: the mapped
// quality score, the overall and per-band similarity, and per-patch
// debug entries for reproducibility.
type Result struct {
	// MOSLQO is the predicted Mean Opinion Score, Listening Quality
	// Objective, in [1, 5].
	MOSLQO float64 `json:"moslqo"`

	// VNSIM is the mean NSIM over all matched patches.
	VNSIM float64 `json:"vnsim"`

	// FVNSIM is the per-band mean NSIM, ordered like CenterFreqBands.
	FVNSIM []float64 `json:"fvnsim"`

	// CenterFreqBands holds the filterbank center frequencies in Hz.
	CenterFreqBands []float64 `json:"center_freq_bands"`

	// PatchSims describes every matched patch pair.
	PatchSims []PatchSimilarity `json:"patch_sims"`

	// Input file paths, populated by the path-based entry points.
	ReferenceFile string `json:"reference_file,omitempty"`
	DegradedFile  string `json:"degraded_file,omitempty"`
}

// PatchSimilarity is the per-patch debug entry: where the reference
// patch and its selected degraded match sit in time, and how similar
// they are.
type PatchSimilarity struct {
	Similarity        float64   `json:"similarity"`
	RefPatchStartTime float64   `json:"ref_patch_start_time"`
	RefPatchEndTime   float64   `json:"ref_patch_end_time"`
	DegPatchStartTime float64   `json:"deg_patch_start_time"`
	DegPatchEndTime   float64   `json:"deg_patch_end_time"`
	FreqBandMeans     []float64 `json:"freq_band_means"`
}

// FilePair names one reference/degraded WAV pair for batch processing.
type FilePair struct {
	Reference string `json:"reference"`
	Degraded  string `json:"degraded"`
}

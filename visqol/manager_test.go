package visqol

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fighting41love/visqol/audio"
)

// speechLikeSignal is an amplitude-modulated tone: enough envelope
// movement to pass voice-activity gating and give NSIM structure to
// work with.
func speechLikeSignal(sampleRate int, duration float64) *audio.Signal {
	n := int(duration * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		ts := float64(i) / float64(sampleRate)
		env := 0.55 + 0.45*math.Sin(2.0*math.Pi*3.0*ts)
		samples[i] = 0.5 * env * math.Sin(2.0*math.Pi*440.0*ts)
	}
	return &audio.Signal{Samples: samples, SampleRate: sampleRate}
}

// pseudoNoise is a deterministic noise-like signal.
func pseudoNoise(sampleRate int, duration float64) *audio.Signal {
	n := int(duration * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		v := math.Sin(float64(i)*12.9898) * 43758.5453
		samples[i] = 0.5 * (v - math.Floor(v) - 0.5) * 2.0
	}
	return &audio.Signal{Samples: samples, SampleRate: sampleRate}
}

func initSpeechManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	require.NoError(t, m.Init("", true, false))
	return m
}

func TestCompareRequiresInit(t *testing.T) {
	m := NewManager()
	sig := speechLikeSignal(16000, 1.0)

	_, err := m.Compare(sig, sig)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = m.CompareFiles("a.wav", "b.wav")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitFailureLeavesManagerUnusable(t *testing.T) {
	m := NewManager()
	err := m.Init(filepath.Join(t.TempDir(), "missing-model.txt"), false, false)
	require.Error(t, err)

	sig := speechLikeSignal(48000, 1.0)
	_, err = m.Compare(sig, sig)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCompareSampleRateMismatch(t *testing.T) {
	m := initSpeechManager(t)

	ref := speechLikeSignal(16000, 1.0)
	deg := speechLikeSignal(8000, 1.0)

	_, err := m.Compare(ref, deg)
	require.Error(t, err)

	var mismatch *SampleRateMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 16000, mismatch.Reference)
	assert.Equal(t, 8000, mismatch.Degraded)
}

func TestCompareSelfSimilarity(t *testing.T) {
	m := initSpeechManager(t)
	sig := speechLikeSignal(16000, 2.0)

	result, err := m.Compare(sig, sig)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.VNSIM, 1e-6)
	assert.GreaterOrEqual(t, result.MOSLQO, 4.99)
	require.Len(t, result.FVNSIM, 21)
	for _, v := range result.FVNSIM {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
	require.Len(t, result.CenterFreqBands, 21)
	assert.NotEmpty(t, result.PatchSims)

	for _, p := range result.PatchSims {
		assert.Less(t, p.RefPatchStartTime, p.RefPatchEndTime)
		assert.Len(t, p.FreqBandMeans, 21)
	}
}

func TestCompareDegradedOrdering(t *testing.T) {
	m := initSpeechManager(t)
	ref := speechLikeSignal(16000, 2.0)

	// 3 dB gain reduction plus 50 ms of look-ahead padding for the
	// aligner to remove.
	padding := make([]float64, 800)
	attenuated := make([]float64, len(ref.Samples))
	for i, v := range ref.Samples {
		attenuated[i] = v / math.Sqrt2
	}
	deg := &audio.Signal{
		Samples:    append(padding, attenuated...),
		SampleRate: 16000,
	}

	selfResult, err := m.Compare(ref, ref)
	require.NoError(t, err)
	degResult, err := m.Compare(ref, deg)
	require.NoError(t, err)
	noiseResult, err := m.Compare(ref, pseudoNoise(16000, 2.0))
	require.NoError(t, err)

	assert.Less(t, degResult.VNSIM, selfResult.VNSIM)
	assert.Greater(t, degResult.VNSIM, noiseResult.VNSIM)
}

func TestCompareDeterministic(t *testing.T) {
	m := initSpeechManager(t)
	ref := speechLikeSignal(16000, 2.0)
	deg := pseudoNoise(16000, 2.0)

	a, err := m.Compare(ref, deg)
	require.NoError(t, err)
	b, err := m.Compare(ref, deg)
	require.NoError(t, err)

	assert.Equal(t, a.MOSLQO, b.MOSLQO)
	assert.Equal(t, a.VNSIM, b.VNSIM)
	assert.Equal(t, a.FVNSIM, b.FVNSIM)
}

func TestCompareUnscaledSpeechMapping(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Init("", true, true))
	sig := speechLikeSignal(16000, 2.0)

	result, err := m.Compare(sig, sig)
	require.NoError(t, err)

	// The unscaled transfer tops out below the full MOS scale.
	assert.Less(t, result.MOSLQO, 5.0)
	assert.Greater(t, result.MOSLQO, 4.0)
}

func TestAudioModeWithSVRModel(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Init(writeSVRModel(t, 32), false, false))

	sig := speechLikeSignal(48000, 1.5)
	result, err := m.Compare(sig, sig)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.VNSIM, 1e-6)
	assert.GreaterOrEqual(t, result.MOSLQO, 1.0)
	assert.LessOrEqual(t, result.MOSLQO, 5.0)
	assert.Len(t, result.FVNSIM, 32)
}

func TestCompareFilesRecordsPaths(t *testing.T) {
	m := initSpeechManager(t)

	refPath := writeWAV(t, "ref.wav", speechLikeSignal(16000, 2.0))
	degPath := writeWAV(t, "deg.wav", speechLikeSignal(16000, 2.0))

	result, err := m.CompareFiles(refPath, degPath)
	require.NoError(t, err)
	assert.Equal(t, refPath, result.ReferenceFile)
	assert.Equal(t, degPath, result.DegradedFile)
	assert.Greater(t, result.VNSIM, 0.9)
}

func TestCompareBatchSkipsFailures(t *testing.T) {
	m := initSpeechManager(t)

	good := writeWAV(t, "good.wav", speechLikeSignal(16000, 2.0))
	pairs := []FilePair{
		{Reference: good, Degraded: "does-not-exist.wav"},
		{Reference: good, Degraded: good},
	}

	results := m.CompareBatch(pairs)
	require.Len(t, results, 1)
	assert.Equal(t, good, results[0].DegradedFile)
}

func TestCompareBatchAbortsWhenUninitialized(t *testing.T) {
	m := NewManager()
	good := writeWAV(t, "good.wav", speechLikeSignal(16000, 2.0))

	results := m.CompareBatch([]FilePair{
		{Reference: good, Degraded: good},
		{Reference: good, Degraded: good},
	})
	assert.Empty(t, results)
}

// writeWAV encodes a signal as 16-bit mono WAV in a temp directory.
func writeWAV(t *testing.T, name string, sig *audio.Signal) string {
	t.Helper()

	data := make([]int, len(sig.Samples))
	for i, v := range sig.Samples {
		data[i] = int(v * 32767.0)
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sig.SampleRate, 16, 1, 1)
	err = enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		SourceBitDepth: 16,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// writeSVRModel writes a minimal RBF epsilon-SVR model file.
func writeSVRModel(t *testing.T, dim int) string {
	t.Helper()

	high := make([]string, dim)
	low := make([]string, dim)
	for i := 0; i < dim; i++ {
		high[i] = fmt.Sprintf("%d:1.0", i+1)
		low[i] = fmt.Sprintf("%d:0.2", i+1)
	}
	content := "svm_type epsilon_svr\nkernel_type rbf\ngamma 0.5\nrho -3.0\ntotal_sv 2\nSV\n" +
		"1.5 " + strings.Join(high, " ") + "\n" +
		"-0.8 " + strings.Join(low, " ") + "\n"

	path := filepath.Join(t.TempDir(), "model.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

package mapper

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// SVRMapper predicts MOS-LQO with a pre-trained epsilon-SVR regression
// model (RBF kernel) over the per-band similarity vector. The model is
// loaded from a libsvm-style text file at Init; loading is synchronous
// and a missing or malformed file is a fatal initialization error.
//
// Model file layout:
//
//	svm_type epsilon_svr
//	kernel_type rbf
//	gamma <float>
//	rho <float>
//	total_sv <int>
//	SV
//	<coef> 1:<v1> 2:<v2> ...   (one line per support vector)
type SVRMapper struct {
	modelPath string

	gamma          float64
	rho            float64
	svCoefs        []float64
	supportVectors [][]float64
	loaded         bool
}

// NewSVRMapper creates a full-audio quality mapper backed by the model
// at modelPath. The model is not read until Init.
func NewSVRMapper(modelPath string) *SVRMapper {
	return &SVRMapper{modelPath: modelPath}
}

// Init loads and validates the model file.
func (m *SVRMapper) Init() error {
	f, err := os.Open(m.modelPath)
	if err != nil {
		return fmt.Errorf("opening similarity-to-quality model: %w", err)
	}
	defer f.Close()

	if err := m.parse(bufio.NewScanner(f)); err != nil {
		return fmt.Errorf("parsing similarity-to-quality model %s: %w", m.modelPath, err)
	}
	m.loaded = true
	return nil
}

// PredictQuality evaluates the SVR decision function over the per-band
// similarity vector and clamps the result to the MOS scale.
func (m *SVRMapper) PredictQuality(similarity float64, bandSimilarities []float64) float64 {
	if !m.loaded || len(m.supportVectors) == 0 {
		return MinMOS
	}

	x := m.featureVector(similarity, bandSimilarities)

	score := -m.rho
	for i, sv := range m.supportVectors {
		dist := floats.Distance(x, sv, 2)
		score += m.svCoefs[i] * math.Exp(-m.gamma*dist*dist)
	}
	return clampMOS(score)
}

// featureVector adapts the per-band vector to the model's input
// dimension, padding with the overall similarity if the band count is
// smaller than the trained dimension.
func (m *SVRMapper) featureVector(similarity float64, bandSimilarities []float64) []float64 {
	dim := len(m.supportVectors[0])
	x := make([]float64, dim)
	for i := range x {
		if i < len(bandSimilarities) {
			x[i] = bandSimilarities[i]
		} else {
			x[i] = similarity
		}
	}
	return x
}

func (m *SVRMapper) parse(scanner *bufio.Scanner) error {
	var totalSV int
	seenSV := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !seenSV {
			fields := strings.Fields(line)
			key := fields[0]
			switch key {
			case "SV":
				seenSV = true
			case "svm_type":
				if len(fields) < 2 || fields[1] != "epsilon_svr" {
					return fmt.Errorf("unsupported svm_type %q", strings.Join(fields[1:], " "))
				}
			case "kernel_type":
				if len(fields) < 2 || fields[1] != "rbf" {
					return fmt.Errorf("unsupported kernel_type %q", strings.Join(fields[1:], " "))
				}
			case "gamma":
				v, err := parseHeaderFloat(fields)
				if err != nil {
					return fmt.Errorf("gamma: %w", err)
				}
				m.gamma = v
			case "rho":
				v, err := parseHeaderFloat(fields)
				if err != nil {
					return fmt.Errorf("rho: %w", err)
				}
				m.rho = v
			case "total_sv":
				v, err := parseHeaderFloat(fields)
				if err != nil {
					return fmt.Errorf("total_sv: %w", err)
				}
				totalSV = int(v)
			default:
				// Ignore header entries this implementation does not use.
			}
			continue
		}

		coef, sv, err := parseSupportVector(line)
		if err != nil {
			return err
		}
		m.svCoefs = append(m.svCoefs, coef)
		m.supportVectors = append(m.supportVectors, sv)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if !seenSV || len(m.supportVectors) == 0 {
		return fmt.Errorf("model contains no support vectors")
	}
	if totalSV > 0 && totalSV != len(m.supportVectors) {
		return fmt.Errorf("expected %d support vectors, found %d", totalSV, len(m.supportVectors))
	}
	if m.gamma <= 0 {
		return fmt.Errorf("missing or invalid gamma")
	}

	dim := len(m.supportVectors[0])
	for i, sv := range m.supportVectors {
		if len(sv) != dim {
			return fmt.Errorf("support vector %d has dimension %d, expected %d", i, len(sv), dim)
		}
	}
	return nil
}

func parseHeaderFloat(fields []string) (float64, error) {
	if len(fields) < 2 {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseFloat(fields[1], 64)
}

// parseSupportVector reads one "coef idx:val idx:val ..." line. The
// sparse indexes are 1-based and must be dense and ascending.
func parseSupportVector(line string) (float64, []float64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, nil, fmt.Errorf("malformed support vector line %q", line)
	}

	coef, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, nil, fmt.Errorf("support vector coefficient %q: %w", fields[0], err)
	}

	sv := make([]float64, 0, len(fields)-1)
	for i, field := range fields[1:] {
		idx, val, ok := strings.Cut(field, ":")
		if !ok {
			return 0, nil, fmt.Errorf("malformed feature %q", field)
		}
		n, err := strconv.Atoi(idx)
		if err != nil || n != i+1 {
			return 0, nil, fmt.Errorf("feature index %q out of order", idx)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("feature value %q: %w", val, err)
		}
		sv = append(sv, v)
	}
	return coef, sv, nil
}

package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fighting41love/visqol/logging"
	"github.com/fighting41love/visqol/visqol"
)

var (
	referenceFile string
	degradedFile  string
	batchInputCSV string
	resultsCSV    string
	modelPath     string
	speechMode    bool
	unscaledMOS   bool
	outputFormat  string
	verbose       bool
)

// rootCmd runs a perceptual quality comparison between a reference and
// a degraded audio file, or over a batch of pairs.
var rootCmd = &cobra.Command{
	Use:   "visqol",
	Short: "Perceptual audio quality assessment (MOS-LQO)",
	Long: `Computes an objective perceptual quality score (MOS-LQO) for a pair
of audio signals: an undistorted reference and a possibly degraded
version. Useful for benchmarking codecs, transmission paths and
processing chains without human listening panels.

Run on a single pair with --reference-file and --degraded-file, or on
many pairs with --batch-input-csv (CSV columns: reference,degraded).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			logging.SetLevel(logging.DebugLevel)
		}
	},
	RunE: run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&referenceFile, "reference-file", "", "reference WAV file")
	flags.StringVar(&degradedFile, "degraded-file", "", "degraded WAV file")
	flags.StringVar(&batchInputCSV, "batch-input-csv", "",
		"CSV of reference,degraded pairs to compare in order")
	flags.StringVar(&resultsCSV, "results-csv", "",
		"write per-pair MOS-LQO results to this CSV file")
	flags.StringVar(&modelPath, "similarity-to-quality-model", "",
		"trained SVR model file (full-audio mode)")
	flags.BoolVar(&speechMode, "use-speech-mode", false,
		"speech mode: 21 bands, VAD-gated patches, closed-form MOS mapping")
	flags.BoolVar(&unscaledMOS, "use-unscaled-speech-mos-mapping", false,
		"skip the final rescaling step of the speech MOS mapping")
	flags.StringVarP(&outputFormat, "output", "o", "summary",
		"output format (summary, json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("output", flags.Lookup("output"))
	viper.SetEnvPrefix("VISQOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	single := referenceFile != "" || degradedFile != ""
	if single == (batchInputCSV != "") {
		return fmt.Errorf("specify either --reference-file/--degraded-file or --batch-input-csv")
	}
	if single && (referenceFile == "" || degradedFile == "") {
		return fmt.Errorf("both --reference-file and --degraded-file are required")
	}
	if !speechMode && modelPath == "" {
		return fmt.Errorf("--similarity-to-quality-model is required outside speech mode")
	}

	manager := visqol.NewManager()
	if err := manager.Init(modelPath, speechMode, unscaledMOS); err != nil {
		return fmt.Errorf("initializing pipeline: %w", err)
	}

	var results []visqol.Result
	if single {
		result, err := manager.CompareFiles(referenceFile, degradedFile)
		if err != nil {
			return err
		}
		results = []visqol.Result{*result}
	} else {
		pairs, err := readBatchCSV(batchInputCSV)
		if err != nil {
			return err
		}
		results = manager.CompareBatch(pairs)
	}

	if err := writeOutput(cmd, results); err != nil {
		return err
	}
	if resultsCSV != "" {
		return writeResultsCSV(resultsCSV, results)
	}
	return nil
}

// readBatchCSV parses reference,degraded pairs, skipping an optional
// header row.
func readBatchCSV(path string) ([]visqol.FilePair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch input: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading batch input %s: %w", path, err)
	}

	var pairs []visqol.FilePair
	for i, record := range records {
		if len(record) < 2 {
			return nil, fmt.Errorf("%s line %d: expected reference,degraded", path, i+1)
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "reference") {
			continue
		}
		pairs = append(pairs, visqol.FilePair{
			Reference: strings.TrimSpace(record[0]),
			Degraded:  strings.TrimSpace(record[1]),
		})
	}
	return pairs, nil
}

func writeOutput(cmd *cobra.Command, results []visqol.Result) error {
	switch viper.GetString("output") {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		for _, r := range results {
			if r.DegradedFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s vs %s\n", r.ReferenceFile, r.DegradedFile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "MOS-LQO:\t%.5f\nVNSIM:\t\t%.5f\n", r.MOSLQO, r.VNSIM)
		}
		return nil
	}
}

func writeResultsCSV(path string, results []visqol.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results CSV: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"reference", "degraded", "moslqo", "vnsim"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.ReferenceFile,
			r.DegradedFile,
			fmt.Sprintf("%.6f", r.MOSLQO),
			fmt.Sprintf("%.6f", r.VNSIM),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

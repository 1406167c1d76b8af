package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/analysis"
	"github.com/paritylens/paritylens/internal/config"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/models"
	"github.com/paritylens/paritylens/internal/narrative"
	"github.com/paritylens/paritylens/internal/output"
	"github.com/paritylens/paritylens/internal/storage"
)

var (
	analyzeVariant    string
	analyzeGroup      string
	analyzeClassifier string
	analyzeWindow     int
	analyzeFormat     string
	analyzeDir        string
	analyzeFromStore  bool
	analyzeNoSave     bool
	analyzeQuiet      bool
	analyzeExplain    bool
	analyzeNarrative  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate classifier fairness across demographic groups",
	Long: `Runs one fairness evaluation: loads screenings, applies the inclusion
filter, classifies every subject, and compares accuracy, PPV, FPR and FNR
across the chosen demographic groups. The run is stored for later
'plens report' and 'plens runs' unless --no-save is given.

A rate whose conditioning set is empty is reported as undefined ("n/a",
JSON null), never as zero.

Examples:
  plens analyze                                # decile threshold, grouped by race
  plens analyze --group sex --explain          # grouped by sex, with definitions
  plens analyze --classifier logit --variant violent
  plens analyze --window 31 --no-save          # probe the filter boundary`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeVariant, "variant", "", "dataset variant: general or violent (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeGroup, "group", "", "group field: race, sex or age_category (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeClassifier, "classifier", "", "classifier kind: decile or logit (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", -2, "charge window in days, bounds inclusive; -1 disables the rule (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "output format: table, json, csv or html (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeDir, "dir", "", "CSV directory (default: dataset.dir from config)")
	analyzeCmd.Flags().BoolVar(&analyzeFromStore, "from-store", false, "load screenings from the store instead of CSV files")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not persist the run")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "one-line summary only")
	analyzeCmd.Flags().BoolVar(&analyzeExplain, "explain", false, "include metric definitions and exclusion tallies")
	analyzeCmd.Flags().BoolVar(&analyzeNarrative, "narrative", false, "append an LLM-written summary of the numbers")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := buildAnalysisOptions()
	if err != nil {
		return err
	}

	var store storage.Store
	if !analyzeNoSave || analyzeFromStore {
		store, err = openStore()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runner := analysis.NewRunner(store, logger)
	res, err := runner.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if analyzeNarrative {
		addNarrative(cmd, res)
	}

	formatter, err := output.NewFormatter(formatKind(), verbosity())
	if err != nil {
		return err
	}
	return formatter.Format(res, os.Stdout)
}

// buildAnalysisOptions resolves flags against config defaults.
func buildAnalysisOptions() (analysis.Options, error) {
	c := *cfg
	if analyzeVariant != "" {
		c.Dataset.Variant = analyzeVariant
	}
	if analyzeGroup != "" {
		c.Dataset.GroupField = analyzeGroup
	}
	if analyzeClassifier != "" {
		c.Classifier.Kind = analyzeClassifier
	}

	variant, err := dataset.ParseVariant(c.Dataset.Variant)
	if err != nil {
		return analysis.Options{}, err
	}

	policy := c.Dataset.Filters
	if analyzeWindow >= -1 {
		policy.ChargeWindowDays = analyzeWindow
	}

	clf, err := c.BuildClassifier()
	if err != nil {
		return analysis.Options{}, err
	}

	dir := analyzeDir
	if dir == "" {
		dir = c.Dataset.Dir
	}

	return analysis.Options{
		Variant:     variant,
		Policy:      policy,
		Classifier:  clf,
		GroupField:  c.Dataset.GroupField,
		DataDir:     dir,
		FromStore:   analyzeFromStore,
		SkipPersist: analyzeNoSave,
	}, nil
}

func formatKind() string {
	if analyzeFormat != "" {
		return analyzeFormat
	}
	return cfg.Output.Format
}

func verbosity() output.VerbosityLevel {
	switch {
	case analyzeQuiet:
		return output.VerbosityQuiet
	case analyzeExplain:
		return output.VerbosityExplain
	default:
		return output.VerbosityStandard
	}
}

// addNarrative asks the LLM for a plain-language summary. Narrative is
// best-effort: a missing key or API failure logs a warning and the numeric
// report still prints.
func addNarrative(cmd *cobra.Command, res *models.RunResult) {
	key := cfg.API.OpenAIKey
	if key == "" {
		key, _ = config.NewCredentialManager().GetOpenAIAPIKey()
	}
	client, err := narrative.NewClient(key)
	if err != nil {
		logger.WithError(err).Warn("Narrative skipped")
		return
	}
	text, err := client.WithModel(cfg.Narrative.Model).Summarize(cmd.Context(), res)
	if err != nil {
		logger.WithError(err).Warn("Narrative generation failed")
		return
	}
	res.Narrative = text
}

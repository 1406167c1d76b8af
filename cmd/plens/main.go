package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/config"
	"github.com/paritylens/paritylens/internal/logging"
	"github.com/paritylens/paritylens/internal/storage"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile  string
	verbose  bool
	jsonLogs bool
	logger   *logrus.Logger
	cfg      *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "plens",
	Short: "ParityLens - group fairness auditing for binary risk classifiers",
	Long: `ParityLens evaluates a binary risk classifier against observed outcomes
and compares accuracy, PPV, FPR and FNR across demographic groups, with
undefined rates reported as such rather than as zeros.

Typical session:
  plens fetch              download the COMPAS dataset CSVs
  plens ingest             parse and store the screening rows
  plens analyze            evaluate fairness and print the group tables
  plens report --open      render the latest run as an HTML report`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logs go to stderr so stdout stays clean for piped reports.
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}
		if jsonLogs {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		initLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

// initLogging stands up the structured slog stream the internal packages
// log to, from the config's logging section with CLI flags layered on top.
func initLogging() {
	logCfg, err := cfg.Logging.Build()
	if err != nil {
		logger.WithError(err).Warn("Invalid logging config, using defaults")
		logCfg = logging.DefaultConfig()
	}
	if verbose {
		logCfg.Level = logging.DEBUG
		logCfg.AddSource = true
	}
	if jsonLogs {
		logCfg.JSONFormat = true
	}
	if err := logging.Initialize(logCfg); err != nil {
		logger.WithError(err).Warn("Structured log initialization failed, using stderr defaults")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .paritylens/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.SetVersionTemplate(`ParityLens {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(mcpCmd)
}

// openStore opens the configured run store. Callers own the Close.
func openStore() (storage.Store, error) {
	return storage.Open(cfg.Storage.Backend, cfg.Storage.SQLitePath, cfg.Storage.PostgresDSN, logger)
}

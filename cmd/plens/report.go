package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/models"
	"github.com/paritylens/paritylens/internal/output"
	"github.com/paritylens/paritylens/internal/storage"
)

var (
	reportOut  string
	reportOpen bool
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Render a stored run as a static HTML report",
	Long: `Renders one stored analysis run as a self-contained HTML page: run
configuration, exclusion tallies, overall and per-group metric tables, and
the largest cross-group gaps. Without a run ID the latest run is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default: <report-dir>/plens-<run-id>.html)")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in the default browser")
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := resolveRun(cmd, store, args)
	if err != nil {
		return err
	}

	dest := reportOut
	if dest == "" {
		if err := os.MkdirAll(cfg.Output.ReportDir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
		dest = filepath.Join(cfg.Output.ReportDir, "plens-"+res.Run.ID+".html")
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	formatter := &output.HTMLFormatter{}
	if err := formatter.Format(res, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", dest)
	if reportOpen {
		if err := output.OpenReport(dest); err != nil {
			logger.WithError(err).Warn("Could not open browser")
		}
	}
	return nil
}

// resolveRun loads the requested run, or the newest one when no ID is given.
func resolveRun(cmd *cobra.Command, store storage.Store, args []string) (*models.RunResult, error) {
	ctx := cmd.Context()
	if len(args) == 1 {
		return store.GetRun(ctx, args[0])
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no stored runs; run 'plens analyze' first")
	}
	return store.GetRun(ctx, runs[0].ID)
}

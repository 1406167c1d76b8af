package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/config"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/fetch"
)

var (
	fetchVariant string
	fetchDir     string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the COMPAS dataset CSVs from GitHub",
	Long: `Downloads the published dataset files from ProPublica's compas-analysis
repository through the GitHub contents API. Files whose upstream commit
matches the local checkpoint are skipped, so re-running fetch is cheap.

A GitHub token (optional, the repository is public) raises the API rate
limit; set GITHUB_TOKEN or run 'plens configure'.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchVariant, "variant", "all", "dataset variant to fetch: general, violent or all")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "destination directory (default: dataset.dir from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	variants, err := parseVariants(fetchVariant)
	if err != nil {
		return err
	}

	destDir := fetchDir
	if destDir == "" {
		destDir = cfg.Dataset.Dir
	}

	token := cfg.API.GitHubToken
	if token == "" {
		token, _ = config.NewCredentialManager().GetGitHubToken()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Fetch.CheckpointPath), 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	checkpoints, err := fetch.OpenCheckpointStore(cfg.Fetch.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoints.Close()

	fetcher := fetch.NewFetcher(token, cfg.Fetch.Owner, cfg.Fetch.Repo, checkpoints)
	stats, err := fetcher.FetchDataset(cmd.Context(), destDir, variants)
	if err != nil {
		return err
	}

	fmt.Printf("Fetched %d file(s) (%d bytes), %d unchanged, into %s\n",
		stats.Downloaded, stats.Bytes, stats.Skipped, destDir)
	return nil
}

// parseVariants expands the --variant flag into concrete dataset variants.
func parseVariants(s string) ([]dataset.Variant, error) {
	if s == "all" || s == "" {
		return []dataset.Variant{dataset.VariantGeneral, dataset.VariantViolent}, nil
	}
	v, err := dataset.ParseVariant(s)
	if err != nil {
		return nil, err
	}
	return []dataset.Variant{v}, nil
}

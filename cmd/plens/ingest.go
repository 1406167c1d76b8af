package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/analysis"
	"github.com/paritylens/paritylens/internal/dataset"
	"github.com/paritylens/paritylens/internal/storage"
)

var (
	ingestVariant string
	ingestDir     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse the dataset CSVs and load the rows into the store",
	Long: `Parses the downloaded CSV files and stores every valid row. No inclusion
filter is applied at ingest time: the store holds the whole file, and each
analysis run applies its own filter policy, so changing the policy never
requires a re-ingest.

With the postgres backend, rows go through the bulk staging loader.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestVariant, "variant", "all", "dataset variant to ingest: general, violent or all")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "source directory (default: dataset.dir from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	variants, err := parseVariants(ingestVariant)
	if err != nil {
		return err
	}

	srcDir := ingestDir
	if srcDir == "" {
		srcDir = cfg.Dataset.Dir
	}

	ctx := cmd.Context()
	for _, v := range variants {
		res, err := dataset.Load(srcDir, v, dataset.KeepAll())
		if err != nil {
			return err
		}

		var stored int
		if cfg.Storage.Backend == storage.BackendPostgres {
			// Opening the store first ensures the schema exists; the
			// staging client only bulk-inserts.
			store, err := openStore()
			if err != nil {
				return err
			}
			store.Close()

			client, err := storage.NewStagingClient(ctx, cfg.Storage.PostgresDSN)
			if err != nil {
				return err
			}
			stored, err = client.StageScreenings(ctx, string(v), res.Rows)
			if err != nil {
				client.Close()
				return err
			}
			err = verifyStaged(ctx, client, string(v), res.Rows)
			client.Close()
			if err != nil {
				return err
			}
		} else {
			store, err := openStore()
			if err != nil {
				return err
			}
			err = store.SaveScreenings(ctx, string(v), res.Rows)
			store.Close()
			if err != nil {
				return err
			}
			stored = len(res.Rows)
		}

		fmt.Printf("Ingested %d %s screenings from %s\n", stored, v, srcDir)
	}
	return nil
}

// verifyStaged cross-checks the staged per-group counts against the rows
// just parsed. Staged counts can exceed parsed counts when an earlier ingest
// already loaded the variant; a shortfall means rows went missing and gets a
// warning per group.
func verifyStaged(ctx context.Context, client *storage.StagingClient, variant string, rows []dataset.Screening) error {
	groupOf, err := analysis.GroupAccessor(cfg.Dataset.GroupField)
	if err != nil {
		return err
	}
	parsed := make(map[string]int)
	for _, row := range rows {
		parsed[groupOf(row)]++
	}
	groups := make([]string, 0, len(parsed))
	for g := range parsed {
		groups = append(groups, g)
	}

	staged, err := client.CountByGroups(ctx, variant, cfg.Dataset.GroupField, groups)
	if err != nil {
		return fmt.Errorf("verify staged counts: %w", err)
	}
	for _, g := range groups {
		if staged[g] < parsed[g] {
			logger.WithFields(logrus.Fields{
				"variant": variant,
				"group":   g,
				"staged":  staged[g],
				"parsed":  parsed[g],
			}).Warn("Staged count below parsed count")
		} else {
			logger.WithFields(logrus.Fields{
				"variant": variant,
				"group":   g,
				"staged":  staged[g],
			}).Debug("Staged count verified")
		}
	}
	return nil
}

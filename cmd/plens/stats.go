package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/dataset"
)

var (
	statsVariant string
	statsGroup   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Descriptive statistics over the ingested screenings",
	Long: `Summarizes the stored dataset without running an evaluation: group sizes
and shares, observed recidivism base rates, mean decile scores, and the
score-label by outcome cross-tab. Computed in SQL over the full ingested
table; 'plens analyze' reports the same summaries for the filtered
population of a run.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsVariant, "variant", "", "dataset variant: general or violent (default from config)")
	statsCmd.Flags().StringVar(&statsGroup, "group", "", "group field: race, sex or age_category (default from config)")
}

func runStats(cmd *cobra.Command, args []string) error {
	variantName := statsVariant
	if variantName == "" {
		variantName = cfg.Dataset.Variant
	}
	variant, err := dataset.ParseVariant(variantName)
	if err != nil {
		return err
	}
	groupField := statsGroup
	if groupField == "" {
		groupField = cfg.Dataset.GroupField
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	total, err := store.CountScreenings(ctx, string(variant))
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("no %s screenings stored; run 'plens ingest' first", variant)
	}

	stats, err := store.GroupStats(ctx, string(variant), groupField)
	if err != nil {
		return err
	}
	cells, err := store.CrossTab(ctx, string(variant))
	if err != nil {
		return err
	}

	fmt.Printf("Stored %s screenings: %d\n\n", variant, total)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tN\tSHARE\tBASE RATE\tMEAN DECILE")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.3f\t%.1f\n",
			s.Group, s.Count, s.Share*100, s.BaseRate, s.MeanDecile)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tREOFFENDED\tDESISTED")
	for _, c := range cells {
		fmt.Fprintf(w, "%s\t%d\t%d\n", c.Label, c.Reoffended, c.Desisted)
	}
	return w.Flush()
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/output"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one stored run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsShowFormat string

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")
	runsShowCmd.Flags().StringVarP(&runsShowFormat, "format", "f", "table", "output format: table, json, csv or html")
	runsCmd.AddCommand(runsShowCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs; run 'plens analyze' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tCREATED\tVARIANT\tCLASSIFIER\tGROUPED BY\tKEPT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Variant, r.Classifier, r.GroupField, r.RecordsKept)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(runsShowFormat, output.VerbosityStandard)
	if err != nil {
		return err
	}
	return formatter.Format(res, os.Stdout)
}

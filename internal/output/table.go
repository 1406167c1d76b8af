package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/paritylens/paritylens/internal/models"
)

// TableFormatter renders aligned text for terminals.
type TableFormatter struct {
	Verbosity VerbosityLevel
}

func (f *TableFormatter) Format(res *models.RunResult, w io.Writer) error {
	if f.Verbosity == VerbosityQuiet {
		return f.formatQuiet(res, w)
	}

	fmt.Fprintf(w, "🔍 ParityLens fairness analysis\n")
	fmt.Fprintf(w, "Run: %s\n", res.Run.ID)
	fmt.Fprintf(w, "Dataset: %s\n", res.Run.Variant)
	fmt.Fprintf(w, "Classifier: %s\n", res.Run.Classifier)
	fmt.Fprintf(w, "Grouped by: %s\n", res.Run.GroupField)
	fmt.Fprintf(w, "Screenings: %d kept of %d read\n\n", res.Run.RecordsKept, res.Run.RecordsRead)

	if err := writeGroupTable(w, res); err != nil {
		return err
	}
	if err := writePopulationTable(w, res.GroupStats); err != nil {
		return err
	}
	if err := writeCrossTab(w, res.CrossTab); err != nil {
		return err
	}
	writeGaps(w, res.Groups)

	if f.Verbosity == VerbosityExplain {
		if err := writeExplain(w, res); err != nil {
			return err
		}
	}

	if res.Narrative != "" {
		fmt.Fprintf(w, "\nNarrative:\n%s\n", res.Narrative)
	}
	return nil
}

func (f *TableFormatter) formatQuiet(res *models.RunResult, w io.Writer) error {
	line := fmt.Sprintf("run %s: %s by %s, %d of %d kept, %d groups",
		shortID(res.Run.ID), res.Run.Variant, res.Run.GroupField,
		res.Run.RecordsKept, res.Run.RecordsRead, len(res.Groups))
	if hi, lo, ok := rateExtremes(res.Groups, func(g models.GroupMetrics) *float64 { return g.FPR }); ok {
		line += fmt.Sprintf(", FPR gap %.3f (%s vs %s)", hi.value-lo.value, hi.group, lo.group)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func writeGroupTable(w io.Writer, res *models.RunResult) error {
	fmt.Fprintf(w, "Group metrics:\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tN\tTP\tFP\tTN\tFN\tACCURACY\tPPV\tFPR\tFNR")
	for _, g := range res.Groups {
		writeMetricsRow(tw, g)
	}
	writeMetricsRow(tw, models.NewGroupMetrics("", "(overall)", res.Run.Matrix()))
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeMetricsRow(w io.Writer, g models.GroupMetrics) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
		g.Group, g.Records, g.TP, g.FP, g.TN, g.FN,
		fmtRate(g.Accuracy), fmtRate(g.PPV), fmtRate(g.FPR), fmtRate(g.FNR))
}

func writePopulationTable(w io.Writer, stats []models.GroupStat) error {
	if len(stats) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Population:\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tN\tSHARE\tBASE RATE\tMEAN DECILE")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.3f\t%.1f\n",
			s.Group, s.Count, s.Share*100, s.BaseRate, s.MeanDecile)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeCrossTab(w io.Writer, cells []models.ScoreOutcomeCell) error {
	if len(cells) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Score vs outcome:\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tREOFFENDED\tDESISTED")
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Label, c.Reoffended, c.Desisted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// writeGaps labels the widest spread per rate. A gap needs at least two
// groups with the rate defined.
func writeGaps(w io.Writer, groups []models.GroupMetrics) {
	type metric struct {
		name string
		get  func(models.GroupMetrics) *float64
	}
	metrics := []metric{
		{"FPR", func(g models.GroupMetrics) *float64 { return g.FPR }},
		{"FNR", func(g models.GroupMetrics) *float64 { return g.FNR }},
		{"PPV", func(g models.GroupMetrics) *float64 { return g.PPV }},
	}

	fmt.Fprintf(w, "Largest gaps:\n")
	any := false
	for _, m := range metrics {
		hi, lo, ok := rateExtremes(groups, m.get)
		if !ok {
			continue
		}
		any = true
		fmt.Fprintf(w, "  %s: %s %.3f vs %s %.3f (gap %.3f)\n",
			m.name, hi.group, hi.value, lo.group, lo.value, hi.value-lo.value)
	}
	if !any {
		fmt.Fprintf(w, "  not enough defined rates to compare groups\n")
	}
}

func writeExplain(w io.Writer, res *models.RunResult) error {
	fmt.Fprintf(w, "\nHow to read the rates:\n")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  accuracy\t(TP+TN)/N\tshare of calls that matched the outcome")
	fmt.Fprintln(tw, "  ppv\tTP/(TP+FP)\tof those called high risk, how many reoffended")
	fmt.Fprintln(tw, "  fpr\tFP/(FP+TN)\tof those who did not reoffend, how many were called high risk")
	fmt.Fprintln(tw, "  fnr\tFN/(FN+TP)\tof those who reoffended, how many were called low risk")
	fmt.Fprintln(tw, "  n/a\t\tdenominator was zero; the rate does not exist for that group")
	if err := tw.Flush(); err != nil {
		return err
	}

	st := res.Run.FilterStats()
	fmt.Fprintf(w, "\nExclusions:\n")
	if res.Run.ChargeWindowDays >= 0 {
		fmt.Fprintf(w, "  outside ±%dd charge window: %d\n", res.Run.ChargeWindowDays, st.ExcludedByWindow)
	} else {
		fmt.Fprintf(w, "  charge window rule disabled\n")
	}
	fmt.Fprintf(w, "  outcome not codeable: %d\n", st.ExcludedByRecidFlag)
	fmt.Fprintf(w, "  traffic offenses: %d\n", st.ExcludedByTraffic)
	fmt.Fprintf(w, "  never scored: %d\n", st.ExcludedByScore)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

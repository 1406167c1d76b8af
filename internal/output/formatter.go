// Package output renders analysis results for people and machines. Formatters
// print the numbers and point at the largest gaps; they never render a
// fairness verdict, because which disparity matters is a judgment the reader
// has to make.
package output

import (
	"fmt"
	"io"

	"github.com/paritylens/paritylens/internal/models"
)

// Formatter defines output formatting interface
type Formatter interface {
	Format(res *models.RunResult, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // One-line summary
	VerbosityStandard                       // Tables + largest gaps
	VerbosityExplain                        // Adds metric definitions + exclusions
)

// Output kinds accepted by NewFormatter.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatHTML  = "html"
)

// NewFormatter creates the formatter for an output kind. Verbosity only
// affects the table formatter; the machine formats always carry everything.
func NewFormatter(kind string, level VerbosityLevel) (Formatter, error) {
	switch kind {
	case FormatTable, "":
		return &TableFormatter{Verbosity: level}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	case FormatHTML:
		return &HTMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json, csv or html)", kind)
	}
}

// fmtRate renders a nullable rate for humans. Undefined rates say so
// explicitly instead of masquerading as 0.
func fmtRate(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *p)
}

// extreme is one end of a metric's range across groups.
type extreme struct {
	group string
	value float64
}

// rateExtremes finds the highest and lowest defined value of one rate across
// groups. ok is false when fewer than two groups have the rate defined, in
// which case there is no gap to report.
func rateExtremes(groups []models.GroupMetrics, get func(models.GroupMetrics) *float64) (hi, lo extreme, ok bool) {
	defined := 0
	for _, g := range groups {
		v := get(g)
		if v == nil {
			continue
		}
		defined++
		if defined == 1 || *v > hi.value {
			hi = extreme{group: g.Group, value: *v}
		}
		if defined == 1 || *v < lo.value {
			lo = extreme{group: g.Group, value: *v}
		}
	}
	return hi, lo, defined >= 2
}

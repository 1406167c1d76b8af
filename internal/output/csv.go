package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/paritylens/paritylens/internal/models"
)

// CSVFormatter writes one row per group for spreadsheet work. Undefined rates
// become empty cells; a consumer that needs 0 there has misread the data.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(res *models.RunResult, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"run_id", "variant", "group_field", "group", "records",
		"tp", "fp", "tn", "fn", "accuracy", "ppv", "fpr", "fnr"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, g := range res.Groups {
		row := []string{
			res.Run.ID,
			res.Run.Variant,
			res.Run.GroupField,
			g.Group,
			strconv.Itoa(g.Records),
			strconv.Itoa(g.TP),
			strconv.Itoa(g.FP),
			strconv.Itoa(g.TN),
			strconv.Itoa(g.FN),
			csvRate(g.Accuracy),
			csvRate(g.PPV),
			csvRate(g.FPR),
			csvRate(g.FNR),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRate(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

package output

import (
	"fmt"
	"html/template"
	"io"

	"github.com/paritylens/paritylens/internal/models"
)

// HTMLFormatter writes a static, self-contained report page: plain tables, no
// scripts, nothing fetched at view time.
type HTMLFormatter struct{}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"rate": fmtRate,
	"pct":  func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	"f1":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"f3":   func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).Parse(reportHTML))

func (f *HTMLFormatter) Format(res *models.RunResult, w io.Writer) error {
	return reportTmpl.Execute(w, res)
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ParityLens report {{.Run.ID}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 60rem; color: #1a1a1a; }
table { border-collapse: collapse; margin: 0.5rem 0 1.5rem; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.7rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
th { background: #f2f2f2; }
td.na { color: #999; font-style: italic; }
dl { display: grid; grid-template-columns: max-content auto; gap: 0.2rem 1rem; }
dt { font-weight: 600; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1rem; color: #333; }
</style>
</head>
<body>
<h1>ParityLens fairness report</h1>
<dl>
<dt>Run</dt><dd>{{.Run.ID}}</dd>
<dt>Created</dt><dd>{{.Run.CreatedAt.Format "2006-01-02 15:04 MST"}}</dd>
<dt>Dataset</dt><dd>{{.Run.Variant}}</dd>
<dt>Classifier</dt><dd>{{.Run.Classifier}}</dd>
<dt>Grouped by</dt><dd>{{.Run.GroupField}}</dd>
<dt>Screenings</dt><dd>{{.Run.RecordsKept}} kept of {{.Run.RecordsRead}} read</dd>
</dl>

<h2>Group metrics</h2>
<table>
<tr><th>Group</th><th>N</th><th>TP</th><th>FP</th><th>TN</th><th>FN</th>
<th>Accuracy</th><th>PPV</th><th>FPR</th><th>FNR</th></tr>
{{range .Groups}}
<tr><td>{{.Group}}</td><td>{{.Records}}</td><td>{{.TP}}</td><td>{{.FP}}</td>
<td>{{.TN}}</td><td>{{.FN}}</td>
{{template "ratecell" .Accuracy}}{{template "ratecell" .PPV}}{{template "ratecell" .FPR}}{{template "ratecell" .FNR}}</tr>
{{end}}
</table>
<p>Rates shown as <em>n/a</em> are undefined for that group: their denominator
is zero, which is not the same as a rate of zero.</p>

{{if .GroupStats}}
<h2>Population</h2>
<table>
<tr><th>Group</th><th>N</th><th>Share</th><th>Base rate</th><th>Mean decile</th></tr>
{{range .GroupStats}}
<tr><td>{{.Group}}</td><td>{{.Count}}</td><td>{{pct .Share}}</td>
<td>{{f3 .BaseRate}}</td><td>{{f1 .MeanDecile}}</td></tr>
{{end}}
</table>
{{end}}

{{if .CrossTab}}
<h2>Score vs outcome</h2>
<table>
<tr><th>Score</th><th>Reoffended</th><th>Desisted</th></tr>
{{range .CrossTab}}
<tr><td>{{.Label}}</td><td>{{.Reoffended}}</td><td>{{.Desisted}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Narrative}}
<h2>Narrative</h2>
<blockquote>{{.Narrative}}</blockquote>
{{end}}
</body>
</html>
{{define "ratecell"}}{{if .}}<td>{{rate .}}</td>{{else}}<td class="na">n/a</td>{{end}}{{end}}
`

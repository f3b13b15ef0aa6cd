// Package report renders an assembled run to its output files. The JSON
// document is the public contract and is always written; the markdown
// and HTML companions are human conveniences derived from the same
// immutable ScanRun.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/logger"
)

var funcs = map[string]any{
	"fdate": func(t time.Time) string { return t.Format("2006-01-02") },
	"ftime": func(t time.Time) string { return t.Format(time.RFC3339) },
	"fval":  func(v float64) string { return fmt.Sprintf("%.4f", v) },
}

// JSON renders the run pretty-printed. Field order follows the struct
// tags in models.ScanRun and is part of the output contract.
func JSON(run *models.ScanRun) ([]byte, error) {
	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(out, '\n'), nil
}

// Markdown renders the human summary.
func Markdown(run *models.ScanRun) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, run); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML renders a self-contained page.
func HTML(run *models.ScanRun) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, run); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the run next to path: the JSON contract at path itself,
// plus .md and (unless suppressed) .html siblings. It returns the paths
// written.
func Write(run *models.ScanRun, path string, includeHTML bool) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}

	type rendering struct {
		path   string
		render func(*models.ScanRun) ([]byte, error)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	renderings := []rendering{
		{path: path, render: JSON},
		{path: base + ".md", render: Markdown},
	}
	if includeHTML {
		renderings = append(renderings, rendering{path: base + ".html", render: HTML})
	}

	var written []string
	for _, r := range renderings {
		out, err := r.render(run)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(r.path, out, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", r.path, err)
		}
		written = append(written, r.path)
	}
	logger.With("report").Info().Strs("files", written).Msg("report written")
	return written, nil
}

var markdownTmpl = texttemplate.Must(texttemplate.New("md").Funcs(funcs).Parse(`# Scan report {{.RunMetadata.RunID}}

- Mode: {{.RunMetadata.Mode}} ({{.RunMetadata.Provider}})
- Window: {{fdate .RunMetadata.WindowStart}} to {{fdate .RunMetadata.WindowEnd}}
- Finished: {{ftime .RunMetadata.FinishedAt}} ({{.RunMetadata.Workers}} workers)
{{- if .RunMetadata.Incomplete}}
- Incomplete dates: {{range .RunMetadata.Incomplete}}{{.}} {{end}}
{{- end}}

## Market ({{fdate .MarketStats.Date}})

| Universe | Scanned | Advancers | Decliners | Unchanged | Signals up | Signals down |
|---:|---:|---:|---:|---:|---:|---:|
| {{.MarketStats.Universe}} | {{.MarketStats.Scanned}} | {{.MarketStats.Advancers}} | {{.MarketStats.Decliners}} | {{.MarketStats.Unchanged}} | {{.MarketStats.SignalsUp}} | {{.MarketStats.SignalsDwn}} |

## Signals
{{if .Signals}}
| Date | Ticker | Indicator | State | Value |
|---|---|---|---|---:|
{{- range .Signals}}
| {{fdate .Date}} | {{.Ticker}} | {{.IndicatorID}} | {{.State}} | {{fval .Value}} |
{{- end}}
{{else}}
No crossovers in this run.
{{end}}
## Issues
{{if .Issues}}
| Date | Ticker | Kind | Detail |
|---|---|---|---|
{{- range .Issues}}
| {{fdate .Date}} | {{.Ticker}} | {{.Kind}} | {{.Detail}} |
{{- end}}
{{else}}
None.
{{end}}
## Storage

| Scan store | Options store | Task logs | Total |
|---:|---:|---:|---:|
| {{.StorageUsage.ScanStoreBytes}} B | {{.StorageUsage.OptionsStoreBytes}} B | {{.StorageUsage.TaskLogBytes}} B | {{.StorageUsage.TotalBytes}} B |
`))

var htmlTmpl = template.Must(template.New("html").Funcs(funcs).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Scan report {{.RunMetadata.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f2f2f2; }
.up { color: #0a7a2f; } .down { color: #b00020; }
</style>
</head>
<body>
<h1>Scan report</h1>
<p>{{.RunMetadata.Mode}} via {{.RunMetadata.Provider}},
{{fdate .RunMetadata.WindowStart}} to {{fdate .RunMetadata.WindowEnd}},
run {{.RunMetadata.RunID}}</p>

<h2>Market ({{fdate .MarketStats.Date}})</h2>
<table>
<tr><th>Universe</th><th>Scanned</th><th>Advancers</th><th>Decliners</th><th>Unchanged</th><th>Signals up</th><th>Signals down</th></tr>
<tr><td>{{.MarketStats.Universe}}</td><td>{{.MarketStats.Scanned}}</td><td>{{.MarketStats.Advancers}}</td><td>{{.MarketStats.Decliners}}</td><td>{{.MarketStats.Unchanged}}</td><td>{{.MarketStats.SignalsUp}}</td><td>{{.MarketStats.SignalsDwn}}</td></tr>
</table>

<h2>Signals</h2>
{{if .Signals}}
<table>
<tr><th>Date</th><th>Ticker</th><th>Indicator</th><th>State</th><th>Value</th></tr>
{{range .Signals}}<tr><td>{{fdate .Date}}</td><td>{{.Ticker}}</td><td>{{.IndicatorID}}</td><td class="{{if eq .State "crossed_up"}}up{{else}}down{{end}}">{{.State}}</td><td>{{fval .Value}}</td></tr>
{{end}}</table>
{{else}}<p>No crossovers in this run.</p>{{end}}

<h2>Ticker summaries</h2>
<table>
<tr><th>Ticker</th><th>Bars</th><th>Indicators</th></tr>
{{range .TickerSummaries}}<tr><td>{{.Ticker}}</td><td>{{.Bars}}</td><td>{{range $id, $st := .Indicators}}{{$id}}={{$st}} {{end}}</td></tr>
{{end}}</table>

<h2>Issues</h2>
{{if .Issues}}
<table>
<tr><th>Date</th><th>Ticker</th><th>Kind</th><th>Detail</th></tr>
{{range .Issues}}<tr><td>{{fdate .Date}}</td><td>{{.Ticker}}</td><td>{{.Kind}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
{{else}}<p>None.</p>{{end}}

<h2>Storage</h2>
<table>
<tr><th>Scan store</th><th>Options store</th><th>Task logs</th><th>Total</th></tr>
<tr><td>{{.StorageUsage.ScanStoreBytes}} B</td><td>{{.StorageUsage.OptionsStoreBytes}} B</td><td>{{.StorageUsage.TaskLogBytes}} B</td><td>{{.StorageUsage.TotalBytes}} B</td></tr>
</table>
</body>
</html>
`))

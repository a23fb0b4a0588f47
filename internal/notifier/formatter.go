package notifier

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
	"SignalDesk/internal/report"
)

// textPlaces is the precision of numbers in mail and chat messages.
const textPlaces = 2

var reportTmpl = template.Must(template.New("report").Parse(`<html>
<body>
<p>Technical analysis for {{.Date}} ({{len .Rows}} symbols).</p>
<table border="1" cellpadding="4" style="border-collapse:collapse">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td style="white-space:pre-line">{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- if .Failures}}
<p>Skipped:</p>
<ul>
{{- range .Failures}}
<li>{{.Symbol}}: {{.Kind}}</li>
{{- end}}
</ul>
{{- end}}
</body>
</html>
`))

// FormatHTMLReport renders the report as an HTML table in column order.
func FormatHTMLReport(rep *model.Report) (string, error) {
	rows := make([][]string, len(rep.Rows))
	for i, row := range rep.Rows {
		cells := report.Cells(row)
		rows[i] = make([]string, len(cells))
		for j, c := range cells {
			rows[i][j] = c.String(textPlaces)
		}
	}

	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Date     string
		Columns  []string
		Rows     [][]string
		Failures []model.SymbolFailure
	}{
		Date:     reportDate(rep).Format("2006-01-02"),
		Columns:  report.Columns,
		Rows:     rows,
		Failures: rep.Failures,
	})
	if err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	return buf.String(), nil
}

// FormatTelegramSummary renders a compact chat message for the report.
func FormatTelegramSummary(rep *model.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Technical Analysis</b> | %s\n", reportDate(rep).Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("%d analysed, %d skipped\n", len(rep.Rows), len(rep.Failures)))

	for _, row := range rep.Rows {
		b.WriteString(fmt.Sprintf("\n<b>%s</b> %s | RSI %s | ATR %s | 1M %s%%\n",
			html.EscapeString(row.Symbol),
			report.FormatNumber(null.FloatFrom(row.CurrentPrice), textPlaces),
			report.FormatNumber(row.RSI14, textPlaces),
			report.FormatNumber(row.ATR, textPlaces),
			report.FormatNumber(row.MonthlyChange, textPlaces),
		))
		for _, sig := range row.Signals {
			b.WriteString(fmt.Sprintf("%s %s\n", directionMark(sig.Direction), html.EscapeString(sig.Text)))
		}
	}

	if len(rep.Failures) > 0 {
		b.WriteString("\n⚠️ Skipped: ")
		names := make([]string, len(rep.Failures))
		for i, f := range rep.Failures {
			names[i] = fmt.Sprintf("%s (%s)", html.EscapeString(f.Symbol), f.Kind)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRunStatus formats the last journal entry for the /status command.
func FormatRunStatus(run *model.RunSummary) string {
	if run == nil {
		return "No run recorded yet."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Last run</b>\n\n")
	b.WriteString(fmt.Sprintf("ID: <code>%s</code>\n", html.EscapeString(run.RunID)))
	b.WriteString(fmt.Sprintf("Finished: %s (%s)\n",
		run.FinishedAt.Format("2006-01-02 15:04"), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("Symbols: %d | Rows: %d | Skipped: %d\n", run.Symbols, run.Rows, run.Failed))
	if len(run.DeliveryErrors) > 0 {
		b.WriteString("Delivery errors:\n")
		for _, e := range run.DeliveryErrors {
			b.WriteString("  • " + html.EscapeString(e) + "\n")
		}
	}
	return b.String()
}

// FormatSymbolHistory lists the journalled outcomes of one symbol, newest first.
func FormatSymbolHistory(symbol string, hist []recorder.SymbolOutcome) string {
	if len(hist) == 0 {
		return fmt.Sprintf("No history for %s.", html.EscapeString(symbol))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗂 <b>%s</b> last %d runs\n", html.EscapeString(symbol), len(hist)))
	for _, o := range hist {
		if o.Status == recorder.StatusOK {
			b.WriteString(fmt.Sprintf("  ✅ bar %s\n", o.AsOf.Format("2006-01-02")))
			continue
		}
		b.WriteString(fmt.Sprintf("  ❌ %s: %s\n", o.Status, html.EscapeString(o.Error)))
	}
	return b.String()
}

// reportDate is the newest bar date in the report, or the run start when there are no rows.
func reportDate(rep *model.Report) time.Time {
	var latest time.Time
	for _, row := range rep.Rows {
		if row.AsOf.After(latest) {
			latest = row.AsOf
		}
	}
	if latest.IsZero() {
		return rep.StartedAt
	}
	return latest
}

func directionMark(d model.Direction) string {
	if d == model.DirectionBuy {
		return "🟢"
	}
	return "🔴"
}

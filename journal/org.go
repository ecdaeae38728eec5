package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/pairtrader/market"
)

// OrgSummary is the data rendered into an org-mode run report.
type OrgSummary struct {
	RunID   string
	Created time.Time
	Dataset string

	Symbols  int
	Tested   int
	Accepted int
	Failed   int

	PValueThreshold float64
	ShortWindow     int
	LongWindow      int
	EntryZ          float64
	ExitZ           float64

	TotalPnL float64
	Results  []ResultRecord

	Notes []string
}

var orgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"pair": func(p market.Pair) string { return p.String() },
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// FormatOrg renders s as an org-mode block.
func FormatOrg(w io.Writer, s OrgSummary) error {
	if err := orgTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("journal: render org: %w", err)
	}
	return nil
}

// WriteOrg renders s to path.
func WriteOrg(path string, s OrgSummary) error {
	buf := new(bytes.Buffer)
	if err := FormatOrg(buf, s); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const RunOrgTemplate = `
* PAIRS BACKTEST: {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    cointegration_mean_reversion
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:SYMBOLS:     {{.Symbols}}
:PAIRS:       {{.Tested}}
:ACCEPTED:    {{.Accepted}}
:FAILED:      {{.Failed}}
:TOTAL_PNL:   {{printf "%.4f" .TotalPnL}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter      | Value |
|----------------+-------|
| p-value        | {{printf "%.3f" .PValueThreshold}} |
| Short window   | {{.ShortWindow}} |
| Long window    | {{.LongWindow}} |
| Entry z        | {{printf "%.2f" .EntryZ}} |
| Exit z         | {{printf "%.2f" .ExitZ}} |

** Pair Returns
| Pair | PnL % | Trades | Wins | Losses |
|------+-------+--------+------+--------|
{{- range .Results }}
| {{pair .Pair}} | {{printf "%.4f" .PnL}} | {{.Trades}} | {{.Wins}} | {{.Losses}} |
{{- end }}

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

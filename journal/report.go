package journal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"
)

// Report describes one backtest run for the Org-mode write-up.
type Report struct {
	RunID     string
	Created   time.Time
	Symbol    string
	Strategy  string
	Timeframe string
	Dataset   string
	Start     time.Time
	End       time.Time

	RiskPct float64
	SLPips  float64
	TPPips  float64

	StartBalance float64
	EndBalance   float64
	MaxDDPct     float64
	Stats        Stats

	Notes []string
}

func (r Report) NetPL() float64 { return r.EndBalance - r.StartBalance }

func (r Report) ReturnPct() float64 {
	if r.StartBalance <= 0 {
		return 0
	}
	return r.NetPL() / r.StartBalance * 100
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"pf": func(x float64) string {
		if x == 0 {
			return "(n/a)"
		}
		return fmt.Sprintf("%.2f", x)
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(reportTemplate))

func (r Report) WriteOrg(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

func (r Report) WriteOrgFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteOrg(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	return f.Close()
}

const reportTemplate = `* BACKTEST: {{.Strategy}} {{.Symbol}} {{if .Timeframe}}{{.Timeframe}}{{else}}M1{{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(random walk){{end}}
:START_DATE:  {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.End.Format "2006-01-02 15:04"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Stats.Trades}}
:WINS:        {{.Stats.Wins}}
:LOSSES:      {{.Stats.Losses}}
:WIN_RATE:    {{printf "%.2f" .Stats.WinRate}}
:PROFIT_FAC:  {{pf .Stats.ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Parameters
| Parameter        | Value |
|------------------+-------|
| Risk per Trade % | {{printf "%.2f" .RiskPct}} |
| Stop (pips)      | {{printf "%.1f" .SLPips}} |
| Target (pips)    | {{printf "%.1f" .TPPips}} |

** Performance Summary
- Net P/L:       *{{printf "%.2f" .NetPL}}*
- Return:        *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:  *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:      *{{printf "%.2f" .Stats.WinRate}}%*
- Profit Factor: *{{pf .Stats.ProfitFactor}}*
- Best / Worst:  {{printf "%.2f" .Stats.BestTrade}} / {{printf "%.2f" .Stats.WorstTrade}}
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

package notifier

import (
	"bytes"
	"fmt"
	"html/template"

	"cryptobroker/src/model"
)

var tmplHelpers = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"pct": func(v float64) string { return fmt.Sprintf("%+.1f%%", v*100) },
}

var signalTmpl = template.Must(template.New("signal").Funcs(tmplHelpers).Parse(`
<h2>Scan from {{.CreatedAt.Format "2006-01-02 15:04"}} UTC &mdash; {{.Regime}}</h2>
{{if .Note}}<p><b>{{.Note}}</b></p>{{end}}
{{if .Picks}}
<table border="1" cellpadding="6" cellspacing="0">
  <tr>
    <th>#</th><th>Coin</th><th>Price USD</th><th>Score</th><th>Weight</th>
    <th>24h</th><th>7d</th><th>ATR%</th><th>RSI</th><th>Note</th>
  </tr>
  {{range $i, $p := .Picks}}
  <tr>
    <td>{{inc $i}}</td>
    <td>{{$p.Symbol}} ({{$p.Name}})</td>
    <td>{{printf "%.6g" $p.PriceUSD}}</td>
    <td>{{printf "%.3f" $p.Score}}</td>
    <td>{{if $p.Wildcard}}&ndash;{{else}}{{printf "%.3f" $p.Weight}}{{end}}</td>
    <td>{{pct $p.Mom24h}}</td>
    <td>{{pct $p.Mom7d}}</td>
    <td>{{pct $p.ATRPct}}</td>
    <td>{{printf "%.0f" $p.RSI14}}</td>
    <td>{{if $p.Wildcard}}wildcard: {{$p.Rationale}}{{end}}</td>
  </tr>
  {{end}}
</table>
{{else}}
<p>No candidates passed the filters this cycle.</p>
{{end}}
`))

var alertTmpl = template.Must(template.New("alert").Funcs(tmplHelpers).Parse(`
<h2>{{.Title}}</h2>
<table border="1" cellpadding="6" cellspacing="0">
  <tr><td>Position</td><td>{{.Trade.Symbol}} ({{.Trade.Name}})</td></tr>
  <tr><td>Invested</td><td>{{printf "%.2f" .Trade.InvestedEUR}} EUR at {{printf "%.6g" .Trade.BuyPriceUSD}} USD</td></tr>
  <tr><td>Last price</td><td>{{printf "%.6g" .Trade.LastPriceUSD}} USD</td></tr>
  <tr><td>High-water</td><td>{{printf "%.6g" .Trade.HighWaterUSD}} USD</td></tr>
  <tr><td>Change</td><td>{{pct .Change}}</td></tr>
  <tr><td>Stop-loss</td><td>{{printf "%.6g" .Trade.StopLossUSD}} USD</td></tr>
  <tr><td>Take-profit</td><td>{{printf "%.6g" .Trade.TakeProfitUSD}} USD</td></tr>
</table>
<p>{{.Hint}}</p>
`))

func renderSignalHTML(sig *model.Signal) (string, error) {
	var buf bytes.Buffer
	if err := signalTmpl.Execute(&buf, sig); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderAlertHTML(trade *model.Trade, kind string, change float64) (string, error) {
	data := struct {
		Title  string
		Hint   string
		Trade  *model.Trade
		Change float64
	}{
		Trade:  trade,
		Change: change,
	}
	switch kind {
	case model.AlertHeadsUp:
		data.Title = "Drawdown heads-up"
		data.Hint = "The position slipped from its high-water mark. Worth a look."
	case model.AlertAction:
		data.Title = "Drawdown action alert"
		data.Hint = "Drawdown crossed the action threshold. Consider the stop-loss."
	case model.AlertProfitLock:
		data.Title = "Profit lock suggestion"
		data.Hint = "Gain since entry crossed the profit threshold. Consider trailing the stop or a partial exit."
	case model.AlertStale:
		data.Title = "Stale position"
		data.Hint = "The position has been open past the staleness window. Capital may be idle."
	default:
		data.Title = "Position alert"
	}

	var buf bytes.Buffer
	if err := alertTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

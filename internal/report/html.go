package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

const researchURL = "https://digital.fidelity.com/ftgw/digital/options-research/?symbol="

var horizonOrder = map[contracts.BucketName]int{
	contracts.BucketCurrentWeek: 0,
	contracts.BucketNextWeek:    1,
	contracts.BucketMonthly:     2,
}

var horizonNames = map[contracts.BucketName]string{
	contracts.BucketCurrentWeek: "Current Week",
	contracts.BucketNextWeek:    "Next Week",
	contracts.BucketMonthly:     "Monthly",
}

var tradeNames = map[contracts.Strategy]string{
	contracts.StrategyPut:  "SELL PUT",
	contracts.StrategyCall: "Covered CALL",
}

// htmlPage is the template view of one run.
type htmlPage struct {
	RunDate    string
	Disclaimer string
	Failed     []string
	Puts       *recSection
	Calls      *recSection
	Sections   []candSection
}

type recSection struct {
	Title      string
	Class      string
	Yes        int
	Borderline int
	Total      int
	HasProxy   bool
	Rows       []recRow
}

type recRow struct {
	Ticker      string
	URL         string
	Term        string
	Verdict     string
	VerdictCSS  string
	Spot        string
	Strike      string
	PctToStrike string
	Expiration  string
	DTE         string
	Premium     string
	Delta       string
	IVR         string
	MaxProfit   string
	Breakeven   string
	CashReq     string
	Yield       string
	Reason      string
}

type candSection struct {
	Title   string
	Class   string
	Count   int
	Tickers []tickerBlock
}

type tickerBlock struct {
	Ticker string
	URL    string
	Rows   []candRow
}

type candRow struct {
	Horizon    string
	Trade      string
	Expiration string
	Strike     string
	Spot       string
	Mid        string
	Yield      string
	Delta      string
	IV         string
	Source     string
	DTE        int
	Spread     string
	Volume     int64
	OI         int64
	Earnings   bool
	Score      string
	Why        string
}

// WriteHTML renders the run report.
func WriteHTML(w io.Writer, run *contracts.RunResult, disclaimer string) error {
	page := htmlPage{
		RunDate:    calendar.Format(run.Today),
		Disclaimer: disclaimer,
		Puts:       recommendationSection("Cash-Secured Put Recommendations", contracts.StrategyPut, run.PutVerdicts),
		Calls:      recommendationSection("Covered Call Recommendations", contracts.StrategyCall, run.CallVerdicts),
	}

	for ticker, reason := range run.FailedTickers {
		page.Failed = append(page.Failed, ticker+": "+reason)
	}
	sort.Strings(page.Failed)

	if s := candidateSection("Cash-Secured Puts", "section-puts", contracts.StrategyPut, run.Candidates); s != nil {
		page.Sections = append(page.Sections, *s)
	}
	if s := candidateSection("Covered Calls", "section-calls", contracts.StrategyCall, run.Candidates); s != nil {
		page.Sections = append(page.Sections, *s)
	}

	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func recommendationSection(title string, strategy contracts.Strategy, verdicts []contracts.RecommendationVerdict) *recSection {
	if len(verdicts) == 0 {
		return nil
	}

	s := &recSection{Title: title, Class: "section-rec", Total: len(verdicts)}
	for _, v := range verdicts {
		switch v.Verdict {
		case contracts.VerdictYes:
			s.Yes++
		case contracts.VerdictBorderline:
			s.Borderline++
		}
		if strings.Contains(v.IVRSource, "proxy") {
			s.HasProxy = true
		}
		s.Rows = append(s.Rows, recommendationRow(strategy, v))
	}
	return s
}

func recommendationRow(strategy contracts.Strategy, v contracts.RecommendationVerdict) recRow {
	row := recRow{
		Ticker:      v.Ticker,
		URL:         researchURL + v.Ticker,
		Term:        v.Term,
		Verdict:     string(v.Verdict),
		VerdictCSS:  "rec-" + strings.ToLower(string(v.Verdict)),
		Spot:        Money(v.Spot),
		Strike:      Money(v.Strike),
		PctToStrike: missing,
		Expiration:  missing,
		DTE:         missing,
		Premium:     Money(v.Premium),
		Delta:       missing,
		IVR:         Percent(v.IVR),
		MaxProfit:   Money(v.MaxProfit),
		Breakeven:   Money(v.Breakeven),
		CashReq:     Money(v.CashRequired),
		Yield:       missing,
		Reason:      v.Reason,
	}

	if v.Spot != nil && v.Strike != nil && *v.Spot != 0 {
		row.PctToStrike = Fixed((*v.Strike-*v.Spot) / *v.Spot * 100, 1) + "%"
	}
	if v.Expiration != nil {
		row.Expiration = calendar.Format(*v.Expiration)
	}
	if v.DTE != nil {
		row.DTE = strconv.Itoa(*v.DTE)
	}
	if v.Delta != nil {
		row.Delta = Fixed(math.Abs(*v.Delta), 3)
	}
	if v.IVR != nil && strings.Contains(v.IVRSource, "proxy") {
		row.IVR += " ★"
	}
	if v.AnnualizedYield != nil {
		row.Yield = Ratio(*v.AnnualizedYield, 1)
	}

	var flags []string
	if strategy == contracts.StrategyPut && v.NearSupport {
		flags = append(flags, "✓ support")
	}
	if strategy == contracts.StrategyCall && v.NearResistance {
		flags = append(flags, "✓ resistance")
	}
	if v.NearRoundNumber {
		flags = append(flags, "○ round#")
	}
	if len(flags) > 0 {
		row.Reason = strings.TrimSpace(row.Reason + " [" + strings.Join(flags, " ") + "]")
	}
	return row
}

func candidateSection(title, class string, strategy contracts.Strategy, cands []contracts.ScreeningCandidate) *candSection {
	byTicker := make(map[string][]contracts.ScreeningCandidate)
	count := 0
	for _, c := range cands {
		if c.Strategy != strategy {
			continue
		}
		byTicker[c.Ticker] = append(byTicker[c.Ticker], c)
		count++
	}
	if count == 0 {
		return nil
	}

	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	s := &candSection{Title: title, Class: class, Count: count}
	for _, t := range tickers {
		rows := byTicker[t]
		sort.SliceStable(rows, func(i, j int) bool {
			hi, hj := horizonOrder[rows[i].Bucket], horizonOrder[rows[j].Bucket]
			if hi != hj {
				return hi < hj
			}
			return rows[i].Score > rows[j].Score
		})

		block := tickerBlock{Ticker: t, URL: researchURL + t}
		for _, c := range rows {
			block.Rows = append(block.Rows, candidateRow(c))
		}
		s.Tickers = append(s.Tickers, block)
	}
	return s
}

func candidateRow(c contracts.ScreeningCandidate) candRow {
	horizon, ok := horizonNames[c.Bucket]
	if !ok {
		horizon = c.BucketLabel
	}
	trade, ok := tradeNames[c.Strategy]
	if !ok {
		trade = string(c.Strategy)
	}

	row := candRow{
		Horizon:    horizon,
		Trade:      trade,
		Expiration: calendar.Format(c.Expiration),
		Strike:     Fixed(c.Strike, 2),
		Spot:       Fixed(c.Spot, 2),
		Mid:        Fixed(c.Mid, 2),
		Yield:      Ratio(c.AnnualizedYield, 2),
		Source:     string(c.DeltaSource),
		DTE:        c.DTE,
		Spread:     Ratio(c.SpreadPct, 2),
		Volume:     c.Volume,
		OI:         c.OpenInterest,
		Earnings:   c.EarningsBeforeExpiry,
		Score:      Fixed(c.Score, 3),
		Why:        c.Rationale,
	}
	if c.HasDelta() {
		row.Delta = Fixed(c.Delta, 3)
	}
	if c.ImpliedVolatility != nil {
		row.IV = Ratio(*c.ImpliedVolatility, 2)
	}
	return row
}

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"plural": func(n int) string {
		if n == 1 {
			return ""
		}
		return "s"
	},
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Options Report {{.RunDate}}</title>
<style>
body{font-family:Segoe UI,Arial,sans-serif;margin:20px;background:#fff;}
details{margin-bottom:6px;}
summary{cursor:pointer;padding:7px 12px;border-radius:4px;}
.section>summary{font-size:16px;font-weight:700;background:#0969da;color:#fff;}
.section-puts>summary{background:#1a7f37;}
.section-calls>summary{background:#6639ba;}
.section-rec>summary{background:#9a6700;}
.ticker-block{margin-left:20px;}
.ticker-block>summary{font-size:13px;font-weight:600;background:#f6f8fa;border:1px solid #d0d7de;}
table{border-collapse:collapse;margin:6px 0 6px 20px;}
th,td{border:1px solid #d0d7de;padding:3px 6px;font-size:12px;text-align:left;white-space:nowrap;}
th{background:#f6f8fa;}
.count{font-weight:400;font-size:13px;margin-left:6px;}
.note{font-size:12px;padding:8px;background:#fff8c5;border:1px solid #e3b341;border-radius:4px;}
.rec-yes{background:#d4edda;color:#155724;font-weight:600;}
.rec-no{background:#f8d7da;color:#721c24;font-weight:600;}
.rec-borderline{background:#fff3cd;color:#856404;font-weight:600;}
.reason-cell{white-space:normal;min-width:180px;max-width:320px;font-size:11px;}
.rec-footnote{font-size:11px;color:#666;font-style:italic;}
.warn-banner{background:#fff3cd;border:2px solid #ffc107;border-radius:6px;padding:10px 14px;}
</style>
</head>
<body>
<h1>Daily Options Screening Report - {{.RunDate}}</h1>
<p class="note">{{.Disclaimer}}</p>
{{if .Failed}}
<div class="warn-banner" id="failed-tickers">
<h3>Tickers that failed during this run</h3>
<ul>{{range .Failed}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}
{{template "recs" .Puts}}
{{template "recs" .Calls}}
{{if not .Sections}}<p class="empty">No candidates passed filters today.</p>{{end}}
{{range .Sections}}
<details class="section {{.Class}}">
<summary>{{.Title}}<span class="count">({{.Count}} candidate{{plural .Count}})</span></summary>
{{range .Tickers}}
<details class="ticker-block" data-ticker="{{.Ticker}}">
<summary><a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Ticker}}</a><span class="count">({{len .Rows}} candidate{{plural (len .Rows)}})</span></summary>
<table class="candidates">
<thead><tr><th>time_horizon</th><th>trade_type</th><th>expiration</th><th>strike</th><th>spot</th><th>mid</th><th>annualized_yield</th><th>delta</th><th>impliedVolatility</th><th>delta_source</th><th>dte</th><th>spread_pct</th><th>volume</th><th>open_interest</th><th>earnings_before_expiry</th><th>score</th><th>why</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Horizon}}</td><td>{{.Trade}}</td><td>{{.Expiration}}</td><td>{{.Strike}}</td><td>{{.Spot}}</td><td>{{.Mid}}</td><td>{{.Yield}}</td><td>{{.Delta}}</td><td>{{.IV}}</td><td>{{.Source}}</td><td>{{.DTE}}</td><td>{{.Spread}}</td><td>{{.Volume}}</td><td>{{.OI}}</td><td>{{.Earnings}}</td><td>{{.Score}}</td><td>{{.Why}}</td></tr>
{{end}}</tbody>
</table>
</details>
{{end}}
</details>
{{end}}
<hr>
<p><strong>Risk reminders:</strong> Assignment risk, overnight gaps, earnings/event shocks, liquidity deterioration, and tail-risk moves can cause losses.</p>
</body>
</html>
{{define "recs"}}{{if .}}
<details open class="section {{.Class}}">
<summary>{{.Title}}<span class="count">{{.Yes}} Yes · {{.Borderline}} Borderline · {{.Total}} total</span></summary>
<table class="rec-table">
<thead><tr><th>Ticker</th><th>Term</th><th>Recommend</th><th>Current Price</th><th>Strike</th><th>% to Strike</th><th>Expiration</th><th>DTE</th><th>Premium</th><th>Delta</th><th>IVR *</th><th>Max Profit</th><th>Breakeven</th><th>Cash Req.</th><th>Ann. Yield</th><th>Why</th></tr></thead>
<tbody>
{{range .Rows}}<tr data-ticker="{{.Ticker}}"><td><a href="{{.URL}}" target="_blank" rel="noopener noreferrer"><strong>{{.Ticker}}</strong></a></td><td>{{.Term}}</td><td class="verdict {{.VerdictCSS}}"><strong>{{.Verdict}}</strong></td><td>{{.Spot}}</td><td>{{.Strike}}</td><td>{{.PctToStrike}}</td><td>{{.Expiration}}</td><td>{{.DTE}}</td><td>{{.Premium}}</td><td>{{.Delta}}</td><td>{{.IVR}}</td><td>{{.MaxProfit}}</td><td>{{.Breakeven}}</td><td>{{.CashReq}}</td><td>{{.Yield}}</td><td class="reason-cell">{{.Reason}}</td></tr>
{{end}}</tbody>
</table>
{{if .HasProxy}}<p class="rec-footnote">★ IVR is a proxy calculated from the option IV (or current 20-day HV) relative to the historical HV range over the available price history.</p>{{end}}
<p class="exit-rules">Exit rules: close at 50-70% of max profit; close or roll if the unrealised loss reaches 2x the premium received.</p>
</details>
{{end}}{{end}}`

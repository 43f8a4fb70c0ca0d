package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

var runDay = calendar.Date(2024, time.March, 1)

func ptr[T any](v T) *T { return &v }

func cand(ticker string, strategy contracts.Strategy, bucket contracts.BucketName, strike, score float64) contracts.ScreeningCandidate {
	return contracts.ScreeningCandidate{
		RunDate:           runDay,
		Ticker:            ticker,
		Strategy:          strategy,
		Bucket:            bucket,
		BucketLabel:       "Monthly",
		Expiration:        calendar.Date(2024, time.April, 19),
		ContractSymbol:    ticker + "-" + string(strategy),
		Spot:              100,
		Strike:            strike,
		Bid:               1.2,
		Ask:               1.3,
		Mid:               1.25,
		SpreadPct:         0.08,
		Volume:            10,
		OpenInterest:      200,
		ImpliedVolatility: ptr(0.3),
		Delta:             -0.2,
		DeltaSource:       contracts.DeltaProvided,
		DTE:               49,
		AnnualizedYield:   0.0968,
		Score:             score,
		Rationale:         "balanced",
	}
}

func sampleRun() *contracts.RunResult {
	return &contracts.RunResult{
		RunID: "r1",
		Today: runDay,
		Candidates: []contracts.ScreeningCandidate{
			cand("MSFT", contracts.StrategyPut, contracts.BucketMonthly, 390, 0.5),
			cand("AAPL", contracts.StrategyCall, contracts.BucketMonthly, 190, 0.4),
			cand("AAPL", contracts.StrategyPut, contracts.BucketMonthly, 170, 0.3),
			cand("AAPL", contracts.StrategyPut, contracts.BucketMonthly, 165, 0.9),
			cand("AAPL", contracts.StrategyPut, contracts.BucketCurrentWeek, 172, 0.2),
		},
		PutVerdicts: []contracts.RecommendationVerdict{{
			Ticker:          "AAPL",
			Strategy:        contracts.StrategyPut,
			Term:            contracts.TermMonthly,
			Verdict:         contracts.VerdictYes,
			Reason:          "IVR 49%; delta 0.20",
			Spot:            ptr(180.0),
			Strike:          ptr(165.0),
			Premium:         ptr(1.25),
			Delta:           ptr(-0.2),
			DTE:             ptr(49),
			IVR:             ptr(49.4),
			IVRSource:       "proxy: option IV vs period HV range",
			AnnualizedYield: ptr(0.0564),
			MaxProfit:       ptr(125.0),
			Breakeven:       ptr(163.75),
			CashRequired:    ptr(16500.0),
			NearSupport:     true,
		}},
		CallVerdicts: []contracts.RecommendationVerdict{{
			Ticker:   "AAPL",
			Strategy: contracts.StrategyCall,
			Term:     contracts.TermShortTerm,
			Verdict:  contracts.VerdictNo,
			Reason:   "No Short-Term CALL candidates survived initial screening",
		}},
		FailedTickers: map[string]string{"ZZZ": "price history: timeout"},
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "$16,500.00", Money(ptr(16500.0)))
	assert.Equal(t, "$1,234,567.89", Money(ptr(1234567.891)))
	assert.Equal(t, "$-12.50", Money(ptr(-12.5)))
	assert.Equal(t, "—", Money(nil))
	assert.Equal(t, "49.4%", Percent(ptr(49.4)))
	assert.Equal(t, "—", Percent(nil))
	assert.Equal(t, "9.68%", Ratio(0.0968, 2))
	assert.Equal(t, "0.200", Fixed(0.2, 3))
}

func TestWriteCandidatesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidatesCSV(&buf, sampleRun().Candidates))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, CandidateColumns, records[0])

	col := func(name string) int {
		for i, c := range CandidateColumns {
			if c == name {
				return i
			}
		}
		t.Fatalf("unknown column %s", name)
		return -1
	}

	// ticker, bucket, strategy asc then score desc
	var order []string
	for _, r := range records[1:] {
		order = append(order, r[col("ticker")]+"/"+r[col("bucket")]+"/"+r[col("strategy")]+"/"+r[col("strike")])
	}
	assert.Equal(t, []string{
		"AAPL/current_week/PUT/172",
		"AAPL/monthly/CALL/190",
		"AAPL/monthly/PUT/165",
		"AAPL/monthly/PUT/170",
		"MSFT/monthly/PUT/390",
	}, order)

	first := records[1]
	assert.Equal(t, "2024-03-01", first[col("run_date")])
	assert.Equal(t, "2024-04-19", first[col("expiration")])
	assert.Equal(t, "0.3", first[col("implied_volatility")])
	assert.Equal(t, "", first[col("otm_pct")])
	assert.Equal(t, "false", first[col("earnings_before_expiry")])
}

func TestWriteCandidatesCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCandidatesCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleRun(), "Not financial advice <b>"))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Contains(t, doc.Find("h1").Text(), "2024-03-01")
	assert.Equal(t, "Not financial advice <b>", doc.Find("p.note").Text(), "disclaimer is escaped")
	assert.Contains(t, doc.Find("#failed-tickers li").Text(), "ZZZ: price history: timeout")

	t.Run("recommendation tables", func(t *testing.T) {
		tables := doc.Find("table.rec-table")
		require.Equal(t, 2, tables.Length())

		row := tables.First().Find("tbody tr").First()
		assert.Equal(t, "AAPL", row.AttrOr("data-ticker", ""))
		assert.Equal(t, "Yes", strings.TrimSpace(row.Find("td.verdict").Text()))
		assert.True(t, row.Find("td.verdict").HasClass("rec-yes"))

		cells := row.Find("td").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
		assert.Equal(t, "$180.00", cells[3])
		assert.Equal(t, "-8.3%", cells[5])
		assert.Equal(t, "0.200", cells[9])
		assert.Equal(t, "49.4% ★", cells[10])
		assert.Equal(t, "$16,500.00", cells[13])
		assert.Equal(t, "5.6%", cells[14])
		assert.Contains(t, cells[15], "[✓ support]")

		assert.Equal(t, 1, doc.Find("p.rec-footnote").Length())
		assert.True(t, tables.Last().Find("td.verdict").HasClass("rec-no"))
	})

	t.Run("candidate sections", func(t *testing.T) {
		sections := doc.Find("details.section-puts, details.section-calls")
		require.Equal(t, 2, sections.Length())
		assert.Contains(t, sections.First().Find("summary").First().Text(), "(4 candidates)")

		aapl := doc.Find("details.section-puts details.ticker-block[data-ticker=AAPL]")
		require.Equal(t, 1, aapl.Length())

		var horizons, strikes []string
		aapl.Find("tbody tr").Each(func(_ int, s *goquery.Selection) {
			horizons = append(horizons, s.Find("td").Eq(0).Text())
			strikes = append(strikes, s.Find("td").Eq(3).Text())
		})
		assert.Equal(t, []string{"Current Week", "Monthly", "Monthly"}, horizons)
		assert.Equal(t, []string{"172.00", "165.00", "170.00"}, strikes)

		msft := doc.Find("details.ticker-block[data-ticker=MSFT]")
		assert.Contains(t, msft.Find("summary").Text(), "(1 candidate)")
	})
}

func TestWriteHTMLNoCandidates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, &contracts.RunResult{Today: runDay}, "d"))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("p.empty").Length())
	assert.Zero(t, doc.Find("table.rec-table").Length())
	assert.Zero(t, doc.Find("#failed-tickers").Length())
}

func TestWriterWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := strategyconfig.Default().Output
	cfg.Dir = filepath.Join(dir, "nested")
	cfg.WriteCSV = true
	cfg.WriteHTML = true

	paths, err := NewWriter(cfg, logger.NewNop()).Write(sampleRun())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "nested", "2024-03-01_options_report.csv"), paths.CSV)
	assert.Equal(t, filepath.Join(dir, "nested", "2024-03-01_options_report.html"), paths.HTML)
	for _, p := range []string{paths.CSV, paths.HTML} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	t.Run("output dir override", func(t *testing.T) {
		other := t.TempDir()
		paths, err := NewWriter(cfg, logger.NewNop()).WithDir(other).Write(sampleRun())
		require.NoError(t, err)
		assert.Equal(t, other, filepath.Dir(paths.CSV))
	})

	t.Run("disabled", func(t *testing.T) {
		off := cfg
		off.WriteCSV, off.WriteHTML = false, false
		paths, err := NewWriter(off, logger.NewNop()).Write(sampleRun())
		require.NoError(t, err)
		assert.Empty(t, paths.CSV)
		assert.Empty(t, paths.HTML)
	})
}

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

// CandidateColumns is the fixed CSV header, one column per candidate field.
var CandidateColumns = []string{
	"run_date", "ticker", "bucket", "bucket_label", "expiration", "strategy", "contract_symbol",
	"spot", "strike", "bid", "ask", "mid", "spread_pct", "volume", "open_interest",
	"implied_volatility", "delta", "delta_source", "dte", "annualized_yield", "breakeven",
	"otm_pct", "earnings_date", "earnings_before_expiry", "ma20", "ma50", "rsi14", "hv20",
	"score", "why_ranked_high",
}

// SortCandidates orders by ticker, bucket, strategy ascending, then score descending.
func SortCandidates(cands []contracts.ScreeningCandidate) []contracts.ScreeningCandidate {
	out := append([]contracts.ScreeningCandidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		if a.Bucket != b.Bucket {
			return a.Bucket < b.Bucket
		}
		if a.Strategy != b.Strategy {
			return a.Strategy < b.Strategy
		}
		return a.Score > b.Score
	})
	return out
}

// WriteCandidatesCSV writes the header plus one row per candidate.
// An empty run still produces the header.
func WriteCandidatesCSV(w io.Writer, cands []contracts.ScreeningCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CandidateColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range SortCandidates(cands) {
		if err := cw.Write(candidateRecord(c)); err != nil {
			return fmt.Errorf("write %s: %w", c.ContractSymbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func candidateRecord(c contracts.ScreeningCandidate) []string {
	earnings := ""
	if c.EarningsDate != nil {
		earnings = calendar.Format(*c.EarningsDate)
	}
	return []string{
		calendar.Format(c.RunDate),
		c.Ticker,
		string(c.Bucket),
		c.BucketLabel,
		calendar.Format(c.Expiration),
		string(c.Strategy),
		c.ContractSymbol,
		num(c.Spot),
		num(c.Strike),
		num(c.Bid),
		num(c.Ask),
		num(c.Mid),
		num(c.SpreadPct),
		strconv.FormatInt(c.Volume, 10),
		strconv.FormatInt(c.OpenInterest, 10),
		optNum(c.ImpliedVolatility),
		num(c.Delta),
		string(c.DeltaSource),
		strconv.Itoa(c.DTE),
		num(c.AnnualizedYield),
		num(c.Breakeven),
		optNum(c.OTMPct),
		earnings,
		strconv.FormatBool(c.EarningsBeforeExpiry),
		num(c.MA20),
		num(c.MA50),
		num(c.RSI14),
		num(c.HV20),
		num(c.Score),
		c.Rationale,
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

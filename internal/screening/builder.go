// Package screening converts raw chain rows into filtered, normalised
// screening candidates.
package screening

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// Filter reason codes. Threshold reasons carry the compared values after a colon.
const (
	ReasonInvalidStrike         = "invalid_strike"
	ReasonInvalidBidAsk         = "invalid_bid_ask"
	ReasonInvalidSpread         = "invalid_spread"
	ReasonOpenInterestBelowMin  = "open_interest_below_min"
	ReasonVolumeBelowMin        = "volume_below_min"
	ReasonSpreadAboveMax        = "spread_above_max"
	ReasonYieldBelowMin         = "annualized_yield_below_min"
	ReasonNotOTM                = "not_otm"
	ReasonDeltaOrOTMOutOfRange  = "delta_or_otm_out_of_range"
	ReasonOTMFallbackOutOfRange = "otm_fallback_out_of_range"
)

// Options are the row-level filter thresholds. Nil pointers disable a filter.
type Options struct {
	MinOpenInterest    *int
	MinVolume          *int
	MaxSpreadPct       *float64
	MinAnnualizedYield float64
	RiskFreeRate       *float64
	Eligibility        Eligibility
}

// OptionsFromConfig maps the strategy config section.
func OptionsFromConfig(s strategyconfig.Screening) Options {
	return Options{
		MinOpenInterest:    s.MinOpenInterest,
		MinVolume:          s.MinVolume,
		MaxSpreadPct:       s.MaxSpreadPct,
		MinAnnualizedYield: s.MinAnnualizedYield,
		RiskFreeRate:       s.RiskFreeRate,
		Eligibility: Eligibility{
			PutDelta:  Band{Min: s.Delta.PutMin, Max: s.Delta.PutMax},
			CallDelta: Band{Min: s.Delta.CallMin, Max: s.Delta.CallMax},
			PutOTM:    Band{Min: s.OTMPct.PutMin, Max: s.OTMPct.PutMax},
			CallOTM:   Band{Min: s.OTMPct.CallMin, Max: s.OTMPct.CallMax},
		},
	}
}

// Input is one expiration's chain for one strategy.
type Input struct {
	Ticker       string
	Strategy     contracts.Strategy
	Bucket       contracts.BucketName
	BucketLabel  string
	Expiration   time.Time
	Rows         []contracts.RawChainRow
	Spot         float64
	Technicals   contracts.Technicals
	EarningsDate *time.Time
	Today        time.Time
}

// AuditFunc receives one decision per examined row. It must not panic.
type AuditFunc func(contracts.ScreeningDecision)

// Builder applies the ordered row checks.
// ⭐ SSOT: 후보 필터 순서는 여기서만 정의
type Builder struct {
	opts   Options
	logger *logger.Logger
}

// NewBuilder creates a candidate builder.
func NewBuilder(opts Options, log *logger.Logger) *Builder {
	return &Builder{opts: opts, logger: log}
}

// Build emits at most one candidate per row. audit may be nil.
func (b *Builder) Build(in Input, audit AuditFunc) []contracts.ScreeningCandidate {
	today := calendar.Truncate(in.Today)
	expiration := calendar.Truncate(in.Expiration)
	dte := calendar.DTE(expiration, today)
	if dte <= 0 {
		return nil
	}

	log := b.logger.WithFields(map[string]interface{}{
		"ticker":     in.Ticker,
		"strategy":   string(in.Strategy),
		"expiration": calendar.Format(expiration),
	})

	if len(in.Rows) == 0 {
		log.Warn("Empty option chain")
		return nil
	}

	out := make([]contracts.ScreeningCandidate, 0, len(in.Rows))
	filtered := make(map[string]int)
	missingDelta := 0

	for _, row := range in.Rows {
		cand, reason := b.evaluate(in, row, today, expiration, dte)

		if audit != nil {
			audit(decisionFor(in.Strategy, expiration, row, reason))
		}
		if reason != "" {
			filtered[reasonCode(reason)]++
			continue
		}
		if cand.DeltaSource == contracts.DeltaOTMFallback {
			missingDelta++
		}
		out = append(out, cand)
	}

	log.WithFields(map[string]interface{}{
		"total_input": len(in.Rows),
		"passed":      len(out),
		"filters":     filtered,
	}).Debug("Chain screened")

	if missingDelta > 0 {
		log.Warnf("delta missing for %d/%d candidate(s), defaulted to 0; set screening.risk_free_rate to enable Black-Scholes delta",
			missingDelta, len(out))
	}

	return out
}

// evaluate runs the checks in order and returns the first failing reason.
// Later checks rely on fields computed by earlier ones.
func (b *Builder) evaluate(in Input, row contracts.RawChainRow, today, expiration time.Time, dte int) (contracts.ScreeningCandidate, string) {
	var none contracts.ScreeningCandidate

	// 1. strike
	if !row.Strike.Valid || row.Strike.V <= 0 {
		return none, ReasonInvalidStrike
	}
	strike := row.Strike.V

	// 2. bid/ask
	bid, ask := row.Bid.Or(0), row.Ask.Or(0)
	if bid <= 0 || ask <= 0 {
		return none, ReasonInvalidBidAsk
	}

	// 3. spread
	spread, ok := SpreadPct(bid, ask)
	if !ok || !finite(spread) {
		return none, ReasonInvalidSpread
	}

	volume := countOf(row.Volume)
	oi := countOf(row.OpenInterest)

	// 4-6. liquidity thresholds
	if b.opts.MinOpenInterest != nil && oi < int64(*b.opts.MinOpenInterest) {
		return none, fmt.Sprintf("%s:%d<%d", ReasonOpenInterestBelowMin, oi, *b.opts.MinOpenInterest)
	}
	if b.opts.MinVolume != nil && volume < int64(*b.opts.MinVolume) {
		return none, fmt.Sprintf("%s:%d<%d", ReasonVolumeBelowMin, volume, *b.opts.MinVolume)
	}
	if b.opts.MaxSpreadPct != nil && spread > *b.opts.MaxSpreadPct {
		return none, fmt.Sprintf("%s:%.6f>%.6f", ReasonSpreadAboveMax, spread, *b.opts.MaxSpreadPct)
	}

	// 7. yield
	mid := (bid + ask) / 2
	annYield, ok := AnnualizedYield(in.Strategy, mid, strike, in.Spot, dte)
	if !ok || !finite(annYield) || annYield < b.opts.MinAnnualizedYield {
		return none, fmt.Sprintf("%s:%.6f<%.6f", ReasonYieldBelowMin, annYield, b.opts.MinAnnualizedYield)
	}

	// 8. OTM
	otm, hasOTM := OTMPct(in.Strategy, strike, in.Spot)
	if hasOTM && otm < 0 {
		return none, fmt.Sprintf("%s:%.6f", ReasonNotOTM, otm)
	}

	// 9. delta band, or OTM band when delta is unavailable
	delta, source, hasDelta := ResolveDelta(DeltaInputs{
		Strategy:     in.Strategy,
		Provided:     row.Delta,
		Spot:         in.Spot,
		Strike:       strike,
		DTE:          dte,
		IV:           row.ImpliedVolatility,
		RiskFreeRate: b.opts.RiskFreeRate,
	})
	if !b.opts.Eligibility.PassesDeltaOrOTM(in.Strategy, delta, hasDelta, otm, hasOTM) {
		if hasDelta {
			return none, ReasonDeltaOrOTMOutOfRange
		}
		return none, ReasonOTMFallbackOutOfRange
	}

	cand := contracts.ScreeningCandidate{
		RunDate:              today,
		Ticker:               in.Ticker,
		Strategy:             in.Strategy,
		Bucket:               in.Bucket,
		BucketLabel:          in.BucketLabel,
		Expiration:           expiration,
		ContractSymbol:       row.ContractSymbol,
		Spot:                 roundPrice(in.Spot),
		Strike:               roundPrice(strike),
		Bid:                  roundPrice(bid),
		Ask:                  roundPrice(ask),
		Mid:                  roundPrice(mid),
		SpreadPct:            roundRatio(spread),
		Volume:               volume,
		OpenInterest:         oi,
		Delta:                roundRatio(delta),
		DeltaSource:          source,
		DTE:                  dte,
		AnnualizedYield:      annYield,
		Breakeven:            roundPrice(Breakeven(in.Strategy, strike, in.Spot, mid)),
		EarningsDate:         in.EarningsDate,
		EarningsBeforeExpiry: EarningsBeforeExpiry(in.EarningsDate, today, expiration),
		MA20:                 in.Technicals.MA20,
		MA50:                 in.Technicals.MA50,
		RSI14:                in.Technicals.RSI14,
		HV20:                 in.Technicals.HV20,
	}
	if row.ImpliedVolatility.Valid {
		iv := roundRatio(row.ImpliedVolatility.V)
		cand.ImpliedVolatility = &iv
	}
	if hasOTM {
		o := roundRatio(otm)
		cand.OTMPct = &o
	}

	return cand, ""
}

// countOf converts a vendor count to int64 clamped to [0, MaxInt64].
// Missing or NaN counts are 0.
func countOf(f contracts.Float) int64 {
	v := f.Or(0)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}

func decisionFor(strategy contracts.Strategy, expiration time.Time, row contracts.RawChainRow, reason string) contracts.ScreeningDecision {
	return contracts.ScreeningDecision{
		Expiration:        expiration,
		Strategy:          strategy,
		ContractSymbol:    row.ContractSymbol,
		Strike:            row.Strike,
		Bid:               row.Bid.Or(0),
		Ask:               row.Ask.Or(0),
		LastPrice:         row.LastPrice,
		Volume:            countOf(row.Volume),
		OpenInterest:      countOf(row.OpenInterest),
		ImpliedVolatility: row.ImpliedVolatility,
		Filtered:          reason != "",
		Reason:            reason,
	}
}

// reasonCode strips the compared values from a threshold reason.
func reasonCode(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package recommend

import (
	"fmt"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/signals"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// PutEngine recommends one monthly cash-secured put per ticker
// ⭐ SSOT: CSP 추천 판정은 여기서만
type PutEngine struct {
	config strategyconfig.PutRecommendation
	logger *logger.Logger
}

// NewPutEngine creates a new cash-secured put engine
func NewPutEngine(config strategyconfig.PutRecommendation, log *logger.Logger) *PutEngine {
	return &PutEngine{config: config, logger: log}
}

// RecommendBatch runs Recommend for every snapshot, sorts and truncates.
// A disabled engine returns an empty list.
func (e *PutEngine) RecommendBatch(snapshots []contracts.TickerSnapshot, today time.Time) []contracts.RecommendationVerdict {
	if !e.config.Enabled {
		return []contracts.RecommendationVerdict{}
	}

	out := make([]contracts.RecommendationVerdict, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, e.Recommend(s, today))
	}
	SortVerdicts(out)
	out = truncate(out, e.config.MaxRecommendations)

	e.logger.WithFields(map[string]interface{}{
		"tickers":  len(snapshots),
		"kept":     len(out),
		"verdicts": countVerdicts(out),
	}).Info("Put recommendations completed")

	return out
}

// Recommend evaluates the monthly PUT pool of one ticker.
func (e *PutEngine) Recommend(s contracts.TickerSnapshot, today time.Time) contracts.RecommendationVerdict {
	cfg := e.config
	spot := s.Technicals.Spot

	v := contracts.RecommendationVerdict{
		Ticker:   s.Ticker,
		Strategy: contracts.StrategyPut,
		Term:     contracts.TermMonthly,
		Verdict:  contracts.VerdictNo,
	}
	if spot > 0 {
		v.Spot = ptr(spot)
	}

	pool := make([]contracts.ScreeningCandidate, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if c.Strategy == contracts.StrategyPut && c.Bucket == contracts.BucketMonthly {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		v.Reason = "No monthly PUT candidates survived initial screening"
		return v
	}

	ivr := signals.IVRankProxy(s.History, firstIV(pool))

	earningsTooClose := false
	if s.EarningsDate != nil {
		days := calendar.DaysBetween(calendar.Truncate(today), calendar.Truncate(*s.EarningsDate))
		earningsTooClose = days >= 0 && days <= cfg.EarningsBufferDays
	}

	support := signals.SupportLevels(s.History)
	atOrBelowSupport := func(strike float64) bool {
		for _, level := range support.All() {
			if signals.AtOrBelowLevel(strike, level, cfg.SupportPctBuffer) {
				return true
			}
		}
		// 지지선 대용: 충분히 OTM이면 인정
		return spot > 0 && (spot-strike)/spot >= cfg.MinOTMPctAsSupport
	}

	qualified := make([]contracts.ScreeningCandidate, 0, len(pool))
	for _, c := range pool {
		if absDeltaWithin(c, cfg.DeltaMin, cfg.DeltaMax) && (!cfg.UseSupportFilter || atOrBelowSupport(c.Strike)) {
			qualified = append(qualified, c)
		}
	}

	supportRelaxed := false
	if len(qualified) == 0 {
		for _, c := range pool {
			if absDeltaWithin(c, cfg.DeltaMin, cfg.DeltaMax) {
				qualified = append(qualified, c)
			}
		}
		supportRelaxed = len(qualified) > 0
	}

	ivrBelow := ivr.Available() && *ivr.Value < cfg.IVRMin
	v.IVR, v.IVRSource = ivr.Value, ivr.Source

	if len(qualified) == 0 {
		var reasons []string
		if ivrBelow {
			reasons = append(reasons, ivrBelowMessage(*ivr.Value, cfg.IVRMin))
		}
		if earningsTooClose {
			reasons = append(reasons, "earnings too close to expiration")
		}
		reasons = append(reasons, noDeltaMessage(cfg.DeltaMin, cfg.DeltaMax))
		v.Reason = joinReasons(reasons)
		return v
	}

	best := qualified[0]
	for _, c := range qualified[1:] {
		if c.AnnualizedYield > best.AnnualizedYield {
			best = c
		}
	}
	strike, premium := best.Strike, best.Mid
	nearRound := signals.NearRoundNumber(strike)

	var hardFails, softFails []string
	if earningsTooClose {
		hardFails = append(hardFails, fmt.Sprintf("earnings within %d days of expiration", cfg.EarningsBufferDays))
	}
	if ivrBelow {
		hardFails = append(hardFails, ivrBelowMessage(*ivr.Value, cfg.IVRMin))
	}
	if !ivr.Available() {
		softFails = append(softFails, fmt.Sprintf("IVR unavailable (%s)", ivr.Source))
	}
	if supportRelaxed {
		softFails = append(softFails, "strike above support levels - use caution")
	}
	if nearRound {
		softFails = append(softFails, "strike near round number (may act as support)")
	}

	verdict, reason, failed := verdictFrom(hardFails, softFails)
	if !failed {
		reason = fmt.Sprintf("IVR %.0f%%; delta %.2f; strike at/below support", *ivr.Value, absf(best.Delta))
	}

	v.Verdict = verdict
	v.Reason = reason
	v.Strike = ptr(strike)
	v.Expiration = ptr(best.Expiration)
	v.Premium = ptr(round2(premium))
	v.Delta = ptr(round3(best.Delta))
	v.DTE = ptr(best.DTE)
	v.AnnualizedYield = ptr(best.AnnualizedYield)
	v.MaxProfit = ptr(round2(premium * 100))
	v.Breakeven = ptr(round2(strike - premium))
	v.CashRequired = ptr(round2(strike * 100))
	v.NearSupport = !supportRelaxed
	v.NearRoundNumber = nearRound

	return v
}

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

const (
	ivrCeiling = 99.9
	ivrFloor   = 0.0
)

// CallEngine recommends a short-term and a monthly covered call per ticker
// ⭐ SSOT: CC 추천 판정은 여기서만
type CallEngine struct {
	config strategyconfig.CallRecommendation
	logger *logger.Logger
}

// NewCallEngine creates a new covered call engine
func NewCallEngine(config strategyconfig.CallRecommendation, log *logger.Logger) *CallEngine {
	return &CallEngine{config: config, logger: log}
}

// RecommendBatch collects both terms for every snapshot, sorts and truncates.
func (e *CallEngine) RecommendBatch(snapshots []contracts.TickerSnapshot, today time.Time) []contracts.RecommendationVerdict {
	if !e.config.Enabled {
		return []contracts.RecommendationVerdict{}
	}

	out := make([]contracts.RecommendationVerdict, 0, 2*len(snapshots))
	for _, s := range snapshots {
		out = append(out, e.Recommend(s, today)...)
	}
	SortVerdicts(out)
	out = truncate(out, e.config.MaxRecommendations)

	e.logger.WithFields(map[string]interface{}{
		"tickers":  len(snapshots),
		"kept":     len(out),
		"verdicts": countVerdicts(out),
	}).Info("Call recommendations completed")

	return out
}

// Recommend returns the Short-Term and Monthly verdicts, in that order.
func (e *CallEngine) Recommend(s contracts.TickerSnapshot, today time.Time) []contracts.RecommendationVerdict {
	minPrice := e.config.MinAcceptablePrice(s.Ticker)

	if s.Technicals.Spot <= 0 {
		return []contracts.RecommendationVerdict{
			e.base(s, contracts.TermShortTerm, minPrice, "Spot price unavailable"),
			e.base(s, contracts.TermMonthly, minPrice, "Spot price unavailable"),
		}
	}

	var shortTerm, monthly []contracts.ScreeningCandidate
	for _, c := range s.Candidates {
		if c.Strategy != contracts.StrategyCall {
			continue
		}
		switch c.Bucket {
		case contracts.BucketCurrentWeek, contracts.BucketNextWeek:
			if c.DTE <= e.config.ShortTermDTEMax {
				shortTerm = append(shortTerm, c)
			}
		case contracts.BucketMonthly:
			monthly = append(monthly, c)
		}
	}

	resistance := signals.ResistanceLevels(s.History)
	return []contracts.RecommendationVerdict{
		e.recommendTerm(s, contracts.TermShortTerm, shortTerm, resistance, minPrice),
		e.recommendTerm(s, contracts.TermMonthly, monthly, resistance, minPrice),
	}
}

func (e *CallEngine) base(s contracts.TickerSnapshot, term string, minPrice *float64, reason string) contracts.RecommendationVerdict {
	v := contracts.RecommendationVerdict{
		Ticker:             s.Ticker,
		Strategy:           contracts.StrategyCall,
		Term:               term,
		Verdict:            contracts.VerdictNo,
		Reason:             reason,
		MinAcceptablePrice: minPrice,
	}
	if s.Technicals.Spot > 0 {
		v.Spot = ptr(s.Technicals.Spot)
	}
	return v
}

// earningsOK blocks an expiration that lands within the buffer after earnings.
func (e *CallEngine) earningsOK(c contracts.ScreeningCandidate, earnings *time.Time) bool {
	if earnings == nil {
		return true
	}
	exp := calendar.Truncate(c.Expiration)
	ed := calendar.Truncate(*earnings)
	return !(!ed.After(exp) && calendar.DaysBetween(ed, exp) <= e.config.EarningsBufferDays)
}

func (e *CallEngine) recommendTerm(
	s contracts.TickerSnapshot,
	term string,
	pool []contracts.ScreeningCandidate,
	resistance signals.Levels,
	minPrice *float64,
) contracts.RecommendationVerdict {
	cfg := e.config
	v := e.base(s, term, minPrice, "")
	spot := s.Technicals.Spot

	if len(pool) == 0 {
		v.Reason = fmt.Sprintf("No %s CALL candidates survived initial screening", term)
		return v
	}

	var qualified []contracts.ScreeningCandidate
	earningsBlocked := false
	for _, c := range pool {
		if !absDeltaWithin(c, cfg.DeltaMin, cfg.DeltaMax) {
			continue
		}
		if e.earningsOK(c, s.EarningsDate) {
			qualified = append(qualified, c)
		} else {
			earningsBlocked = true
		}
	}

	if len(qualified) == 0 {
		ivr := signals.IVRankProxy(s.History, firstIV(pool))
		var reasons []string
		if ivr.Available() && *ivr.Value < cfg.IVRMin {
			reasons = append(reasons, ivrBelowMessage(*ivr.Value, cfg.IVRMin))
		}
		if earningsBlocked {
			reasons = append(reasons, "earnings too close to expiration")
		}
		reasons = append(reasons, noDeltaMessage(cfg.DeltaMin, cfg.DeltaMax))
		v.IVR, v.IVRSource = ivr.Value, ivr.Source
		v.Reason = joinReasons(reasons)
		return v
	}

	best := qualified[0]
	for _, c := range qualified[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	// IVR은 추천 계약 자체의 IV 기준
	ivr := signals.IVRankProxy(s.History, best.IV())

	strike, premium := best.Strike, best.Mid
	nearRound := signals.NearRoundNumber(strike)
	nearResistance := false
	for _, level := range resistance.All() {
		if signals.NearLevel(strike, level, cfg.ResistancePctBuffer) {
			nearResistance = true
			break
		}
	}
	belowMin := minPrice != nil && strike < *minPrice

	var hardFails, softFails []string
	switch {
	case !ivr.Available():
		softFails = append(softFails, fmt.Sprintf("IVR unavailable (%s)", ivr.Source))
	case *ivr.Value < cfg.IVRMin:
		hardFails = append(hardFails, ivrBelowMessage(*ivr.Value, cfg.IVRMin))
	}
	if ivr.Available() {
		switch {
		case *ivr.Value >= ivrCeiling:
			softFails = append(softFails, "IVR proxy at ceiling (100%) - likely overstated vs. period HV range")
		case *ivr.Value == ivrFloor:
			softFails = append(softFails, "IVR proxy at floor (0%) - current vol may be understated")
		}
	}
	if belowMin {
		softFails = append(softFails, fmt.Sprintf("strike $%.2f below min acceptable $%.2f - assignment risk", strike, *minPrice))
	}

	verdict, reason, failed := verdictFrom(hardFails, softFails)
	if !failed {
		reason = fmt.Sprintf("IVR %.0f%%; delta %.2f", *ivr.Value, absf(best.Delta))
		if nearResistance {
			reason += "; strike near resistance (favourable)"
		}
	}

	v.Verdict = verdict
	v.Reason = reason
	v.Strike = ptr(strike)
	v.Expiration = ptr(best.Expiration)
	v.Premium = ptr(round2(premium))
	v.Delta = ptr(round3(best.Delta))
	v.DTE = ptr(best.DTE)
	v.IVR, v.IVRSource = ivr.Value, ivr.Source
	v.AnnualizedYield = ptr(best.AnnualizedYield)
	v.MaxProfit = ptr(round2((strike - spot + premium) * 100))
	v.Breakeven = ptr(round2(spot - premium))
	v.NearResistance = nearResistance
	v.NearRoundNumber = nearRound
	v.BelowMinPrice = belowMin

	return v
}

package screening

import (
	"math"

	"github.com/wonny/optincome/internal/contracts"
)

// normCDF is the standard normal cumulative distribution.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// BlackScholesDelta returns the closed-form delta using a calendar-day time
// fraction t = dte/365. It reports false when any input is degenerate.
func BlackScholesDelta(strategy contracts.Strategy, spot, strike float64, dte int, iv, riskFreeRate float64) (float64, bool) {
	if spot <= 0 || strike <= 0 || dte <= 0 || iv <= 0 {
		return 0, false
	}
	t := float64(dte) / daysPerYear
	d1 := (math.Log(spot/strike) + (riskFreeRate+0.5*iv*iv)*t) / (iv * math.Sqrt(t))
	if math.IsNaN(d1) {
		return 0, false
	}

	if strategy == contracts.StrategyCall {
		return normCDF(d1), true
	}
	return normCDF(d1) - 1, true
}

// DeltaInputs is what ResolveDelta needs from one row.
type DeltaInputs struct {
	Strategy     contracts.Strategy
	Provided     contracts.Float
	Spot         float64
	Strike       float64
	DTE          int
	IV           contracts.Float
	RiskFreeRate *float64
}

// ResolveDelta applies the resolution order: provided, Black-Scholes, unavailable.
// The returned source is otm_fallback when no delta could be resolved.
func ResolveDelta(in DeltaInputs) (float64, contracts.DeltaSource, bool) {
	if in.Provided.Valid {
		return in.Provided.V, contracts.DeltaProvided, true
	}
	if in.RiskFreeRate != nil && in.IV.Valid {
		if d, ok := BlackScholesDelta(in.Strategy, in.Spot, in.Strike, in.DTE, in.IV.V, *in.RiskFreeRate); ok {
			return d, contracts.DeltaBlackScholes, true
		}
	}
	return 0, contracts.DeltaOTMFallback, false
}

// Band is an inclusive range.
type Band struct {
	Min float64
	Max float64
}

// Contains reports Min <= v <= Max.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Eligibility holds the per-strategy delta and OTM bands.
type Eligibility struct {
	PutDelta  Band
	CallDelta Band
	PutOTM    Band
	CallOTM   Band
}

// PassesDeltaOrOTM checks the delta band when delta is known, else the OTM band.
func (e Eligibility) PassesDeltaOrOTM(strategy contracts.Strategy, delta float64, hasDelta bool, otm float64, hasOTM bool) bool {
	if hasDelta {
		if strategy == contracts.StrategyPut {
			return e.PutDelta.Contains(delta)
		}
		return e.CallDelta.Contains(delta)
	}
	if !hasOTM {
		return false
	}
	if strategy == contracts.StrategyPut {
		return e.PutOTM.Contains(otm)
	}
	return e.CallOTM.Contains(otm)
}

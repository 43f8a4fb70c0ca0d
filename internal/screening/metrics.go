package screening

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/optincome/internal/contracts"
)

// 연환산 기준일수
const daysPerYear = 365.0

// SpreadPct returns (ask-bid)/mid, or false when mid <= 0 or ask < bid.
func SpreadPct(bid, ask float64) (float64, bool) {
	mid := (bid + ask) / 2
	if mid <= 0 || ask < bid {
		return 0, false
	}
	return (ask - bid) / mid, true
}

// AnnualizedYield returns premium over collateral, annualised on calendar days.
// Collateral is strike for puts (cash secured) and spot for calls (covered stock).
func AnnualizedYield(strategy contracts.Strategy, credit, strike, spot float64, dte int) (float64, bool) {
	if dte <= 0 {
		return 0, false
	}
	premiumPerContract := credit * 100
	denom := spot * 100
	if strategy == contracts.StrategyPut {
		denom = strike * 100
	}
	if denom <= 0 {
		return 0, false
	}
	return (premiumPerContract / denom) * (daysPerYear / float64(dte)), true
}

// Breakeven is strike-credit for puts and spot-credit for calls.
func Breakeven(strategy contracts.Strategy, strike, spot, credit float64) float64 {
	if strategy == contracts.StrategyPut {
		return strike - credit
	}
	return spot - credit
}

// OTMPct is (spot-strike)/spot for puts and (strike-spot)/spot for calls.
func OTMPct(strategy contracts.Strategy, strike, spot float64) (float64, bool) {
	if spot <= 0 {
		return 0, false
	}
	if strategy == contracts.StrategyPut {
		return (spot - strike) / spot, true
	}
	return (strike - spot) / spot, true
}

// EarningsBeforeExpiry reports today <= earnings <= expiration.
func EarningsBeforeExpiry(earnings *time.Time, today, expiration time.Time) bool {
	if earnings == nil {
		return false
	}
	return !earnings.Before(today) && !earnings.After(expiration)
}

// Round rounds half away from zero at the given decimal places.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func roundPrice(v float64) float64 { return Round(v, 4) }
func roundRatio(v float64) float64 { return Round(v, 6) }

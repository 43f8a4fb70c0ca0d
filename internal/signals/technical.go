// Package signals derives per-ticker price signals: technical snapshot,
// IV rank proxy and support/resistance levels.
package signals

import (
	"math"

	"github.com/wonny/optincome/internal/contracts"
)

const (
	tradingDaysPerYear = 252
	defaultHV20        = 0.25
	neutralRSI         = 50.0
)

// ComputeTechnicals builds the indicator snapshot from an ascending history.
// ⭐ SSOT: 기술적 지표 계산은 여기서만
// Returns false for an empty history.
func ComputeTechnicals(history contracts.PriceHistory) (contracts.Technicals, bool) {
	closes := history.Closes()
	if len(closes) == 0 {
		return contracts.Technicals{}, false
	}
	spot := closes[len(closes)-1]

	t := contracts.Technicals{
		Spot:  spot,
		MA20:  spot,
		MA50:  spot,
		RSI14: neutralRSI,
		HV20:  defaultHV20,
	}
	if ma, ok := trailingMean(closes, 20); ok {
		t.MA20 = ma
	}
	if ma, ok := trailingMean(closes, 50); ok {
		t.MA50 = ma
	}
	if rsi, ok := rsi(closes, 14); ok {
		t.RSI14 = rsi
	}

	returns := dailyReturns(closes)
	if len(returns) >= 20 {
		if sd, ok := sampleStd(returns[len(returns)-20:]); ok {
			t.HV20 = sd * math.Sqrt(tradingDaysPerYear)
		}
	}
	return t, true
}

// rsi uses simple means of the last period gains and losses.
// 평균 손실이 0이면 계산 불가로 간주
func rsi(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 0, false
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

func trailingMean(values []float64, window int) (float64, bool) {
	if window <= 0 || len(values) < window {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window), true
}

// dailyReturns is the simple percentage change, skipping undefined steps.
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			continue
		}
		r := (closes[i] - prev) / prev
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sampleStd is the ddof=1 standard deviation.
func sampleStd(values []float64) (float64, bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1)), true
}

// rollingHV is the annualised rolling standard deviation of returns.
func rollingHV(returns []float64, window int) []float64 {
	if len(returns) < window {
		return nil
	}
	out := make([]float64, 0, len(returns)-window+1)
	for end := window; end <= len(returns); end++ {
		sd, ok := sampleStd(returns[end-window : end])
		if !ok {
			continue
		}
		out = append(out, sd*math.Sqrt(tradingDaysPerYear))
	}
	return out
}

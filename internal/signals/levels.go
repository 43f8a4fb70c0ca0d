package signals

import (
	"math"

	"github.com/wonny/optincome/internal/contracts"
)

const swingWindow = 20

// Levels are price levels from the available history. Nil means unavailable.
type Levels struct {
	Period *float64 // full-window low (support) or high (resistance)
	Swing  *float64 // 20-period low/high at the latest bar
}

// All returns the available levels, period first.
func (l Levels) All() []float64 {
	out := make([]float64, 0, 2)
	if l.Period != nil {
		out = append(out, *l.Period)
	}
	if l.Swing != nil {
		out = append(out, *l.Swing)
	}
	return out
}

// SupportLevels returns low_52w and swing_low_20d from the Low series.
func SupportLevels(history contracts.PriceHistory) Levels {
	return levels(history.Lows(), math.Min)
}

// ResistanceLevels returns high_52w and swing_high_20d from the High series.
func ResistanceLevels(history contracts.PriceHistory) Levels {
	return levels(history.Highs(), math.Max)
}

func levels(series []float64, pick func(a, b float64) float64) Levels {
	if len(series) == 0 {
		return Levels{}
	}
	period := fold(series, pick)
	out := Levels{Period: &period}
	if len(series) >= swingWindow {
		swing := fold(series[len(series)-swingWindow:], pick)
		out.Swing = &swing
	}
	return out
}

func fold(series []float64, pick func(a, b float64) float64) float64 {
	acc := series[0]
	for _, v := range series[1:] {
		acc = pick(acc, v)
	}
	return acc
}

// NearLevel reports level*(1-buffer) <= strike <= level*(1+buffer).
func NearLevel(strike, level, buffer float64) bool {
	if level <= 0 {
		return false
	}
	return strike >= level*(1-buffer) && strike <= level*(1+buffer)
}

// AtOrBelowLevel reports strike <= level*(1+buffer).
func AtOrBelowLevel(strike, level, buffer float64) bool {
	if level <= 0 {
		return false
	}
	return strike <= level*(1+buffer)
}

// NearRoundNumber reports a strike within 1% of the nearest multiple of 5.
func NearRoundNumber(strike float64) bool {
	nearest := math.RoundToEven(strike/5) * 5
	return math.Abs(strike-nearest)/math.Max(strike, 1e-6) < 0.01
}


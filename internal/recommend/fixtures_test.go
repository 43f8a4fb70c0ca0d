package recommend

import (
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
)

var runDay = calendar.Date(2024, time.March, 1)

// Against regimeHistory the IVR proxy ranks IV 0.32 at 49.4, 0.20 at 11.9,
// 0.01 at 0 and 1.0 at 100.
const (
	ivMid   = 0.32
	ivLow   = 0.20
	ivFloor = 0.01
	ivHigh  = 1.0
)

func alternating(n int, level, pct float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = level
		} else {
			out[i] = level * (1 + pct)
		}
	}
	return out
}

func historyFromCloses(closes []float64) contracts.PriceHistory {
	h := make(contracts.PriceHistory, len(closes))
	for i, c := range closes {
		h[i] = contracts.PriceBar{Date: runDay.AddDate(0, 0, i-len(closes)), Open: c, High: c, Low: c, Close: c}
	}
	return h
}

// regimeHistory is 40 calm bars (+/-1%) then 40 volatile bars (+/-3%) between
// 100 and 103. Support is 100, resistance 103.
func regimeHistory() contracts.PriceHistory {
	return historyFromCloses(append(alternating(40, 100, 0.01), alternating(40, 100, 0.03)...))
}

func shortHistory() contracts.PriceHistory {
	return historyFromCloses(alternating(10, 100, 0.01))
}

type candOpt func(*contracts.ScreeningCandidate)

func withIV(iv float64) candOpt {
	return func(c *contracts.ScreeningCandidate) { c.ImpliedVolatility = &iv }
}

func withYield(y float64) candOpt {
	return func(c *contracts.ScreeningCandidate) { c.AnnualizedYield = y }
}

func withScore(s float64) candOpt {
	return func(c *contracts.ScreeningCandidate) { c.Score = s }
}

func withBucket(b contracts.BucketName, dte int) candOpt {
	return func(c *contracts.ScreeningCandidate) {
		c.Bucket = b
		c.DTE = dte
		c.Expiration = runDay.AddDate(0, 0, dte)
	}
}

func withoutDelta() candOpt {
	return func(c *contracts.ScreeningCandidate) {
		c.Delta = 0
		c.DeltaSource = contracts.DeltaOTMFallback
	}
}

func candidate(strategy contracts.Strategy, strike, delta, mid float64, opts ...candOpt) contracts.ScreeningCandidate {
	iv := ivMid
	c := contracts.ScreeningCandidate{
		RunDate:           runDay,
		Ticker:            "XYZ",
		Strategy:          strategy,
		Bucket:            contracts.BucketMonthly,
		Expiration:        runDay.AddDate(0, 0, 35),
		DTE:               35,
		ContractSymbol:    "XYZ-" + string(strategy),
		Strike:            strike,
		Mid:               mid,
		Delta:             delta,
		DeltaSource:       contracts.DeltaProvided,
		ImpliedVolatility: &iv,
		AnnualizedYield:   0.25,
		Score:             0.5,
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func snapshot(spot float64, history contracts.PriceHistory, cands ...contracts.ScreeningCandidate) contracts.TickerSnapshot {
	return contracts.TickerSnapshot{
		Ticker:     "XYZ",
		Candidates: cands,
		History:    history,
		Technicals: contracts.Technicals{Spot: spot, MA20: spot, MA50: spot, RSI14: 50, HV20: 0.25},
	}
}

func putConfig() strategyconfig.PutRecommendation {
	return strategyconfig.Default().Recommendation.Put
}

func callConfig() strategyconfig.CallRecommendation {
	return strategyconfig.Default().Recommendation.Call
}

package contracts

import "time"

// PriceBar is one OHLCV observation.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceHistory is an ascending series of bars.
type PriceHistory []PriceBar

// Closes returns the close series.
func (h PriceHistory) Closes() []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		out[i] = b.Close
	}
	return out
}

// Lows returns the low series; bars without a usable low fall back to close.
func (h PriceHistory) Lows() []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		if b.Low > 0 {
			out[i] = b.Low
		} else {
			out[i] = b.Close
		}
	}
	return out
}

// Highs returns the high series; bars without a usable high fall back to close.
func (h PriceHistory) Highs() []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		if b.High > 0 {
			out[i] = b.High
		} else {
			out[i] = b.Close
		}
	}
	return out
}

// Technicals is the per-ticker indicator snapshot for one run.
// ⭐ SSOT: 기술 지표 스냅샷은 실행 당 한 번 계산 후 불변
type Technicals struct {
	Spot  float64 `json:"spot"`
	MA20  float64 `json:"ma20"`
	MA50  float64 `json:"ma50"`
	RSI14 float64 `json:"rsi14"`
	HV20  float64 `json:"hv20"`
}

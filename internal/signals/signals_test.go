package signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

func historyFromCloses(closes ...float64) contracts.PriceHistory {
	start := calendar.Date(2024, time.January, 2)
	h := make(contracts.PriceHistory, len(closes))
	for i, c := range closes {
		h[i] = contracts.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return h
}

func linear(n int, from float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)
	}
	return out
}

// alternating moves of +/- pct around a flat level
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

func TestComputeTechnicals(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, ok := ComputeTechnicals(nil)
		assert.False(t, ok)
	})

	t.Run("single bar falls back", func(t *testing.T) {
		tech, ok := ComputeTechnicals(historyFromCloses(42))
		require.True(t, ok)
		assert.Equal(t, contracts.Technicals{Spot: 42, MA20: 42, MA50: 42, RSI14: 50, HV20: 0.25}, tech)
	})

	t.Run("trending series", func(t *testing.T) {
		tech, ok := ComputeTechnicals(historyFromCloses(linear(30, 100)...))
		require.True(t, ok)

		assert.Equal(t, 129.0, tech.Spot)
		assert.InDelta(t, 119.5, tech.MA20, 1e-9)
		assert.Equal(t, 129.0, tech.MA50) // fewer than 50 bars
		assert.Equal(t, 50.0, tech.RSI14) // no losses
		assert.Greater(t, tech.HV20, 0.0)
		assert.NotEqual(t, 0.25, tech.HV20)
	})

	t.Run("rsi from simple means", func(t *testing.T) {
		closes := []float64{100}
		for i := 1; i <= 20; i++ {
			if i%2 == 1 {
				closes = append(closes, closes[i-1]+2)
			} else {
				closes = append(closes, closes[i-1]-1)
			}
		}
		tech, ok := ComputeTechnicals(historyFromCloses(closes...))
		require.True(t, ok)

		// 7 gains of 2, 7 losses of 1: rs = 2
		assert.InDelta(t, 100-100/3.0, tech.RSI14, 1e-9)
	})

	t.Run("ma50 with enough bars", func(t *testing.T) {
		tech, _ := ComputeTechnicals(historyFromCloses(linear(60, 1)...))
		assert.InDelta(t, 35.5, tech.MA50, 1e-9) // mean of 11..60
	})
}

func TestSampleStd(t *testing.T) {
	sd, ok := sampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(32.0/7.0), sd, 1e-12)

	_, ok = sampleStd([]float64{1})
	assert.False(t, ok)
}

func TestIVRankProxy(t *testing.T) {
	t.Run("insufficient prices", func(t *testing.T) {
		res := IVRankProxy(historyFromCloses(linear(24, 100)...), 0.3)
		assert.False(t, res.Available())
		assert.Equal(t, IVRInsufficientPrices, res.Source)
	})

	t.Run("insufficient hv", func(t *testing.T) {
		// zero closes leave too few defined returns
		res := IVRankProxy(historyFromCloses(alternating(30, 0, 1)...), 0.3)
		assert.False(t, res.Available())
		assert.Equal(t, IVRInsufficientHV, res.Source)
	})

	t.Run("flat", func(t *testing.T) {
		flat := make([]float64, 40)
		for i := range flat {
			flat[i] = 50
		}
		res := IVRankProxy(historyFromCloses(flat...), 0.3)
		assert.False(t, res.Available())
		assert.Equal(t, IVRFlatRange, res.Source)
	})

	calm := alternating(40, 100, 0.01)
	wild := alternating(40, 100, 0.03)
	history := historyFromCloses(append(calm, wild...)...)
	hv := rollingHV(dailyReturns(history.Closes()), 20)
	low, high := hv[0], hv[0]
	for _, v := range hv {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	require.Greater(t, high, low)

	tests := []struct {
		name       string
		currentIV  float64
		want       float64
		wantSource string
	}{
		{"option iv at midpoint", (low + high) / 2, 50, IVRSourceOptionIV},
		{"option iv above range clamps", high * 2, 100, IVRSourceOptionIV},
		{"option iv below range clamps", low / 2, 0, IVRSourceOptionIV},
		{"latest hv when iv missing", 0, 100, IVRSourceCurrentHV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := IVRankProxy(history, tt.currentIV)
			require.True(t, res.Available())
			assert.Equal(t, tt.want, *res.Value)
			assert.Equal(t, tt.wantSource, res.Source)
		})
	}
}

func TestIVRankProxyBounded(t *testing.T) {
	history := historyFromCloses(append(alternating(30, 100, 0.02), linear(30, 100)...)...)
	for _, iv := range []float64{0, 0.01, 0.2, 0.5, 1, 5} {
		res := IVRankProxy(history, iv)
		require.True(t, res.Available(), "iv=%v", iv)
		assert.GreaterOrEqual(t, *res.Value, 0.0)
		assert.LessOrEqual(t, *res.Value, 100.0)
	}
}

func TestSupportAndResistanceLevels(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, SupportLevels(nil).All())
		assert.Empty(t, ResistanceLevels(nil).All())
	})

	t.Run("short history has no swing", func(t *testing.T) {
		lv := SupportLevels(historyFromCloses(10, 9, 11))
		require.NotNil(t, lv.Period)
		assert.Equal(t, 9.0, *lv.Period)
		assert.Nil(t, lv.Swing)
	})

	t.Run("swing uses last 20 bars", func(t *testing.T) {
		h := historyFromCloses(linear(30, 100)...)
		h[0].Low = 50   // period low
		h[1].High = 500 // period high

		support := SupportLevels(h)
		assert.Equal(t, 50.0, *support.Period)
		assert.Equal(t, 110.0, *support.Swing)

		resistance := ResistanceLevels(h)
		assert.Equal(t, 500.0, *resistance.Period)
		assert.Equal(t, 129.0, *resistance.Swing)
		assert.Equal(t, []float64{500, 129}, resistance.All())
	})

	t.Run("missing low falls back to close", func(t *testing.T) {
		h := historyFromCloses(10, 12)
		h[0].Low = 0
		assert.Equal(t, 10.0, *SupportLevels(h).Period)
	})
}

func TestNearLevel(t *testing.T) {
	tests := []struct {
		strike, level, buffer float64
		near, below           bool
	}{
		{100, 100, 0.02, true, true},
		{101.5, 100, 0.02, true, true},
		{98.5, 100, 0.02, true, true},
		{103, 100, 0.02, false, false},
		{90, 100, 0.02, false, true},
		{100, 0, 0.02, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.near, NearLevel(tt.strike, tt.level, tt.buffer), "near %v/%v", tt.strike, tt.level)
		assert.Equal(t, tt.below, AtOrBelowLevel(tt.strike, tt.level, tt.buffer), "below %v/%v", tt.strike, tt.level)
	}
}

func TestNearRoundNumber(t *testing.T) {
	tests := []struct {
		strike float64
		want   bool
	}{
		{100, true},
		{101, true},
		{97, false},
		{102.5, false},
		{185, true},
		{0.5, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NearRoundNumber(tt.strike), "strike %v", tt.strike)
	}
}

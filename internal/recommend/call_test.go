package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/signals"
	"github.com/wonny/optincome/pkg/logger"
)

func newCallEngine() *CallEngine {
	return NewCallEngine(callConfig(), logger.NewNop())
}

func shortCall(strike, delta, mid float64, opts ...candOpt) contracts.ScreeningCandidate {
	opts = append([]candOpt{withBucket(contracts.BucketNextWeek, 10)}, opts...)
	return candidate(contracts.StrategyCall, strike, delta, mid, opts...)
}

func TestCallRecommendShortTermYes(t *testing.T) {
	s := snapshot(100, regimeHistory(), shortCall(103, 0.20, 1.20))

	out := newCallEngine().Recommend(s, runDay)
	require.Len(t, out, 2)

	st, monthly := out[0], out[1]
	assert.Equal(t, contracts.TermShortTerm, st.Term)
	assert.Equal(t, contracts.TermMonthly, monthly.Term)

	assert.Equal(t, contracts.VerdictYes, st.Verdict)
	assert.Equal(t, "IVR 49%; delta 0.20; strike near resistance (favourable)", st.Reason)
	assert.True(t, st.NearResistance)
	require.NotNil(t, st.IVR)
	assert.InDelta(t, 49.4, *st.IVR, 1e-9)
	assert.Equal(t, signals.IVRSourceOptionIV, st.IVRSource)
	assert.InDelta(t, 420.0, *st.MaxProfit, 1e-9)
	assert.InDelta(t, 98.8, *st.Breakeven, 1e-9)
	assert.Nil(t, st.CashRequired)
	assert.Equal(t, 10, *st.DTE)

	assert.Equal(t, contracts.VerdictNo, monthly.Verdict)
	assert.Equal(t, "No Monthly CALL candidates survived initial screening", monthly.Reason)
	assert.Nil(t, monthly.Strike)
}

func TestCallRecommendShortTermDTECap(t *testing.T) {
	s := snapshot(100, regimeHistory(),
		candidate(contracts.StrategyCall, 103, 0.20, 1.20, withBucket(contracts.BucketCurrentWeek, 17)),
	)

	out := newCallEngine().Recommend(s, runDay)
	assert.Equal(t, "No Short-Term CALL candidates survived initial screening", out[0].Reason)
}

func TestCallRecommendPicksHighestScore(t *testing.T) {
	s := snapshot(100, regimeHistory(),
		candidate(contracts.StrategyCall, 108, 0.15, 0.90, withScore(0.60)),
		candidate(contracts.StrategyCall, 112, 0.12, 0.60, withScore(0.70)),
		candidate(contracts.StrategyCall, 104, 0.30, 2.00, withScore(0.90)), // delta band 밖
	)

	monthly := newCallEngine().Recommend(s, runDay)[1]

	assert.Equal(t, contracts.VerdictYes, monthly.Verdict)
	require.NotNil(t, monthly.Strike)
	assert.Equal(t, 112.0, *monthly.Strike)
	assert.Equal(t, "IVR 49%; delta 0.12", monthly.Reason)
	assert.False(t, monthly.NearResistance)
	assert.InDelta(t, 1260.0, *monthly.MaxProfit, 1e-9)
}

func TestCallRecommendEarnings(t *testing.T) {
	tests := []struct {
		name     string
		offset   int // days after runDay; expiration is runDay+35
		expected contracts.Verdict
	}{
		{"earnings three days before expiration", 32, contracts.VerdictNo},
		{"earnings on expiration", 35, contracts.VerdictNo},
		{"earnings well before expiration", 20, contracts.VerdictYes},
		{"earnings after expiration", 40, contracts.VerdictYes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapshot(100, regimeHistory(), candidate(contracts.StrategyCall, 108, 0.15, 0.90))
			earnings := runDay.AddDate(0, 0, tt.offset)
			s.EarningsDate = &earnings

			monthly := newCallEngine().Recommend(s, runDay)[1]
			assert.Equal(t, tt.expected, monthly.Verdict)
			if tt.expected == contracts.VerdictNo {
				assert.Equal(t, "earnings too close to expiration; no strike with |delta| 0.10-0.25", monthly.Reason)
				require.NotNil(t, monthly.IVR)
				assert.InDelta(t, 49.4, *monthly.IVR, 1e-9)
			}
		})
	}
}

func TestCallRecommendIVRGates(t *testing.T) {
	tests := []struct {
		name    string
		iv      float64
		ivrMin  float64
		verdict contracts.Verdict
		reason  string
	}{
		{
			name:    "below threshold",
			iv:      ivLow,
			ivrMin:  30,
			verdict: contracts.VerdictNo,
			reason:  "IVR 12% below 30% threshold",
		},
		{
			name:    "ceiling",
			iv:      ivHigh,
			ivrMin:  30,
			verdict: contracts.VerdictBorderline,
			reason:  "IVR proxy at ceiling (100%) - likely overstated vs. period HV range",
		},
		{
			name:    "floor",
			iv:      ivFloor,
			ivrMin:  0,
			verdict: contracts.VerdictBorderline,
			reason:  "IVR proxy at floor (0%) - current vol may be understated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := callConfig()
			cfg.IVRMin = tt.ivrMin
			e := NewCallEngine(cfg, logger.NewNop())

			s := snapshot(100, regimeHistory(), candidate(contracts.StrategyCall, 108, 0.15, 0.90, withIV(tt.iv)))
			monthly := e.Recommend(s, runDay)[1]

			assert.Equal(t, tt.verdict, monthly.Verdict)
			assert.Equal(t, tt.reason, monthly.Reason)
		})
	}
}

func TestCallRecommendIVRUnavailable(t *testing.T) {
	s := snapshot(100, shortHistory(), candidate(contracts.StrategyCall, 108, 0.15, 0.90))

	monthly := newCallEngine().Recommend(s, runDay)[1]

	assert.Equal(t, contracts.VerdictBorderline, monthly.Verdict)
	assert.Equal(t, "IVR unavailable (insufficient price history for IVR proxy)", monthly.Reason)
	assert.Nil(t, monthly.IVR)
}

func TestCallRecommendBelowMinAcceptablePrice(t *testing.T) {
	cfg := callConfig()
	cfg.MinAcceptablePrices = map[string]float64{"XYZ": 105}
	e := NewCallEngine(cfg, logger.NewNop())

	out := e.Recommend(snapshot(100, regimeHistory(), shortCall(103, 0.20, 1.20)), runDay)
	st := out[0]

	assert.Equal(t, contracts.VerdictBorderline, st.Verdict)
	assert.Equal(t, "strike $103.00 below min acceptable $105.00 - assignment risk", st.Reason)
	assert.True(t, st.BelowMinPrice)
	require.NotNil(t, st.MinAcceptablePrice)
	assert.Equal(t, 105.0, *st.MinAcceptablePrice)
	require.NotNil(t, out[1].MinAcceptablePrice, "every row carries the floor")
}

func TestCallRecommendSpotUnavailable(t *testing.T) {
	s := snapshot(0, regimeHistory(), shortCall(103, 0.20, 1.20))

	out := newCallEngine().Recommend(s, runDay)
	require.Len(t, out, 2)
	for _, v := range out {
		assert.Equal(t, contracts.VerdictNo, v.Verdict)
		assert.Equal(t, "Spot price unavailable", v.Reason)
		assert.Nil(t, v.Spot)
		assert.Nil(t, v.Strike)
	}
}

func TestCallRecommendBatch(t *testing.T) {
	a := snapshot(100, regimeHistory(), shortCall(103, 0.20, 1.20, withYield(0.30)))
	a.Ticker = "AAA"
	b := snapshot(100, regimeHistory(), candidate(contracts.StrategyCall, 108, 0.15, 0.90, withYield(0.50)))
	b.Ticker = "BBB"

	out := newCallEngine().RecommendBatch([]contracts.TickerSnapshot{a, b}, runDay)
	require.Len(t, out, 4)

	assert.Equal(t, "BBB", out[0].Ticker)
	assert.Equal(t, contracts.TermMonthly, out[0].Term)
	assert.Equal(t, "AAA", out[1].Ticker)
	assert.Equal(t, contracts.VerdictNo, out[2].Verdict)
	assert.Equal(t, "AAA", out[2].Ticker, "ties keep input order")
	assert.Equal(t, contracts.VerdictNo, out[3].Verdict)

	cfg := callConfig()
	cfg.MaxRecommendations = 1
	out = NewCallEngine(cfg, logger.NewNop()).RecommendBatch([]contracts.TickerSnapshot{a, b}, runDay)
	require.Len(t, out, 1)
	assert.Equal(t, "BBB", out[0].Ticker)

	cfg.Enabled = false
	assert.Empty(t, NewCallEngine(cfg, logger.NewNop()).RecommendBatch([]contracts.TickerSnapshot{a}, runDay))
}

package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/signals"
	"github.com/wonny/optincome/pkg/logger"
)

func newPutEngine() *PutEngine {
	return NewPutEngine(putConfig(), logger.NewNop())
}

func TestPutRecommendYes(t *testing.T) {
	s := snapshot(110, regimeHistory(),
		candidate(contracts.StrategyPut, 103, -0.22, 1.50, withYield(0.40)),
		candidate(contracts.StrategyPut, 97, -0.15, 1.00, withYield(0.30)),
	)

	v := newPutEngine().Recommend(s, runDay)

	assert.Equal(t, contracts.VerdictYes, v.Verdict)
	assert.Equal(t, contracts.TermMonthly, v.Term)
	assert.Equal(t, contracts.StrategyPut, v.Strategy)
	assert.Equal(t, "IVR 49%; delta 0.22; strike at/below support", v.Reason)

	require.NotNil(t, v.Strike)
	assert.Equal(t, 103.0, *v.Strike, "highest yield wins")
	require.NotNil(t, v.IVR)
	assert.InDelta(t, 49.4, *v.IVR, 1e-9)
	assert.Equal(t, signals.IVRSourceOptionIV, v.IVRSource)
	assert.InDelta(t, 1.50, *v.Premium, 1e-9)
	assert.InDelta(t, -0.22, *v.Delta, 1e-9)
	assert.InDelta(t, 150.0, *v.MaxProfit, 1e-9)
	assert.InDelta(t, 101.5, *v.Breakeven, 1e-9)
	assert.InDelta(t, 10300.0, *v.CashRequired, 1e-9)
	assert.Equal(t, 35, *v.DTE)
	assert.InDelta(t, 110.0, *v.Spot, 1e-9)
	assert.True(t, v.NearSupport)
	assert.False(t, v.NearRoundNumber)
}

func TestPutRecommendSupportRelaxed(t *testing.T) {
	// 107은 지지선(100) 위이고 OTM 5% 미만
	s := snapshot(110, regimeHistory(),
		candidate(contracts.StrategyPut, 107, -0.24, 2.10),
	)

	v := newPutEngine().Recommend(s, runDay)

	assert.Equal(t, contracts.VerdictBorderline, v.Verdict)
	assert.Equal(t, "strike above support levels - use caution", v.Reason)
	assert.False(t, v.NearSupport)
	require.NotNil(t, v.Strike)
	assert.Equal(t, 107.0, *v.Strike)
}

func TestPutRecommendSupportFilterDisabled(t *testing.T) {
	cfg := putConfig()
	cfg.UseSupportFilter = false
	e := NewPutEngine(cfg, logger.NewNop())

	s := snapshot(110, regimeHistory(),
		candidate(contracts.StrategyPut, 107, -0.24, 2.10),
	)

	v := e.Recommend(s, runDay)
	assert.Equal(t, contracts.VerdictYes, v.Verdict)
	assert.True(t, v.NearSupport)
}

func TestPutRecommendHardFails(t *testing.T) {
	tests := []struct {
		name     string
		snapshot func() contracts.TickerSnapshot
		reason   string
	}{
		{
			name: "earnings inside buffer",
			snapshot: func() contracts.TickerSnapshot {
				s := snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 103, -0.22, 1.50))
				earnings := runDay.AddDate(0, 0, 3)
				s.EarningsDate = &earnings
				return s
			},
			reason: "earnings within 7 days of expiration",
		},
		{
			name: "ivr below threshold",
			snapshot: func() contracts.TickerSnapshot {
				return snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 103, -0.22, 1.50, withIV(ivLow)))
			},
			reason: "IVR 12% below 30% threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newPutEngine().Recommend(tt.snapshot(), runDay)
			assert.Equal(t, contracts.VerdictNo, v.Verdict)
			assert.Equal(t, tt.reason, v.Reason)
			require.NotNil(t, v.Strike, "a qualified contract is still reported")
		})
	}
}

func TestPutRecommendEarningsOutsideBuffer(t *testing.T) {
	s := snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 103, -0.22, 1.50))
	earnings := runDay.AddDate(0, 0, 20)
	s.EarningsDate = &earnings

	v := newPutEngine().Recommend(s, runDay)
	assert.Equal(t, contracts.VerdictYes, v.Verdict)

	past := runDay.AddDate(0, 0, -2)
	s.EarningsDate = &past
	v = newPutEngine().Recommend(s, runDay)
	assert.Equal(t, contracts.VerdictYes, v.Verdict, "past earnings do not block")
}

func TestPutRecommendIVRUnavailable(t *testing.T) {
	s := snapshot(110, shortHistory(), candidate(contracts.StrategyPut, 92, -0.22, 1.50))

	v := newPutEngine().Recommend(s, runDay)

	assert.Equal(t, contracts.VerdictBorderline, v.Verdict)
	assert.Equal(t, "IVR unavailable (insufficient price history for IVR proxy)", v.Reason)
	assert.Nil(t, v.IVR)
	assert.Equal(t, signals.IVRInsufficientPrices, v.IVRSource)
}

func TestPutRecommendNoQualifyingDelta(t *testing.T) {
	tests := []struct {
		name   string
		cand   contracts.ScreeningCandidate
		reason string
	}{
		{
			name:   "delta outside band",
			cand:   candidate(contracts.StrategyPut, 103, -0.40, 1.50),
			reason: "no strike with |delta| 0.10-0.25",
		},
		{
			name:   "delta unavailable",
			cand:   candidate(contracts.StrategyPut, 103, 0, 1.50, withoutDelta()),
			reason: "no strike with |delta| 0.10-0.25",
		},
		{
			name:   "ivr also low",
			cand:   candidate(contracts.StrategyPut, 103, -0.40, 1.50, withIV(ivLow)),
			reason: "IVR 12% below 30% threshold; no strike with |delta| 0.10-0.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newPutEngine().Recommend(snapshot(110, regimeHistory(), tt.cand), runDay)
			assert.Equal(t, contracts.VerdictNo, v.Verdict)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Nil(t, v.Strike)
			assert.Nil(t, v.Premium)
		})
	}
}

func TestPutRecommendEmptyPool(t *testing.T) {
	// 주간 만기와 콜은 월간 PUT 풀에 포함되지 않음
	s := snapshot(110, regimeHistory(),
		candidate(contracts.StrategyPut, 103, -0.22, 1.50, withBucket(contracts.BucketNextWeek, 10)),
		candidate(contracts.StrategyCall, 115, 0.22, 1.50),
	)

	v := newPutEngine().Recommend(s, runDay)

	assert.Equal(t, contracts.VerdictNo, v.Verdict)
	assert.Equal(t, "No monthly PUT candidates survived initial screening", v.Reason)
	assert.Nil(t, v.IVR)
	require.NotNil(t, v.Spot)
}

func TestPutRecommendBatch(t *testing.T) {
	yes := snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 103, -0.22, 1.50, withYield(0.40)))
	yes.Ticker = "AAA"
	border := snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 107, -0.24, 2.10, withYield(0.90)))
	border.Ticker = "BBB"
	none := snapshot(110, regimeHistory())
	none.Ticker = "CCC"
	yesHigh := snapshot(110, regimeHistory(), candidate(contracts.StrategyPut, 103, -0.22, 1.50, withYield(0.55)))
	yesHigh.Ticker = "DDD"

	out := newPutEngine().RecommendBatch([]contracts.TickerSnapshot{none, border, yes, yesHigh}, runDay)

	require.Len(t, out, 4)
	got := make([]string, len(out))
	for i, v := range out {
		got[i] = v.Ticker
	}
	assert.Equal(t, []string{"DDD", "AAA", "BBB", "CCC"}, got)

	cfg := putConfig()
	cfg.MaxRecommendations = 2
	out = NewPutEngine(cfg, logger.NewNop()).RecommendBatch([]contracts.TickerSnapshot{none, border, yes, yesHigh}, runDay)
	assert.Len(t, out, 2)
}

func TestPutRecommendBatchDisabled(t *testing.T) {
	cfg := putConfig()
	cfg.Enabled = false

	out := NewPutEngine(cfg, logger.NewNop()).RecommendBatch([]contracts.TickerSnapshot{snapshot(110, regimeHistory())}, runDay)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

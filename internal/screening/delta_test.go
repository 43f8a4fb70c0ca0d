package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/contracts"
)

func TestBlackScholesDelta(t *testing.T) {
	t.Run("deep in-the-money call", func(t *testing.T) {
		d, ok := BlackScholesDelta(contracts.StrategyCall, 150, 100, 30, 0.3, 0.02)
		require.True(t, ok)
		assert.Greater(t, d, 0.9)
		assert.LessOrEqual(t, d, 1.0)
	})

	t.Run("strike far above spot put", func(t *testing.T) {
		d, ok := BlackScholesDelta(contracts.StrategyPut, 100, 150, 30, 0.3, 0.02)
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, -1.0)
		assert.Less(t, d, -0.9)
	})

	t.Run("put call parity of delta", func(t *testing.T) {
		c, _ := BlackScholesDelta(contracts.StrategyCall, 100, 95, 10, 0.5, 0.02)
		p, _ := BlackScholesDelta(contracts.StrategyPut, 100, 95, 10, 0.5, 0.02)
		assert.InDelta(t, 1.0, c-p, 1e-12)
	})

	guards := []struct {
		name             string
		spot, strike, iv float64
		dte              int
	}{
		{"zero iv", 100, 95, 0, 10},
		{"negative iv", 100, 95, -0.2, 10},
		{"zero dte", 100, 95, 0.3, 0},
		{"zero spot", 0, 95, 0.3, 10},
		{"zero strike", 100, 0, 0.3, 10},
	}
	for _, g := range guards {
		t.Run(g.name, func(t *testing.T) {
			_, ok := BlackScholesDelta(contracts.StrategyPut, g.spot, g.strike, g.dte, g.iv, 0.02)
			assert.False(t, ok)
		})
	}
}

func TestResolveDelta(t *testing.T) {
	rfr := 0.02

	d, src, ok := ResolveDelta(DeltaInputs{Strategy: contracts.StrategyPut, Provided: contracts.F(-0.22), IV: contracts.F(0.5), RiskFreeRate: &rfr, Spot: 100, Strike: 95, DTE: 10})
	require.True(t, ok)
	assert.Equal(t, contracts.DeltaProvided, src)
	assert.Equal(t, -0.22, d)

	d, src, ok = ResolveDelta(DeltaInputs{Strategy: contracts.StrategyPut, IV: contracts.F(0.5), RiskFreeRate: &rfr, Spot: 100, Strike: 95, DTE: 10})
	require.True(t, ok)
	assert.Equal(t, contracts.DeltaBlackScholes, src)
	assert.InDelta(t, -0.252, d, 0.005)

	// risk-free rate 미설정 -> 추정 불가
	_, src, ok = ResolveDelta(DeltaInputs{Strategy: contracts.StrategyPut, IV: contracts.F(0.5), Spot: 100, Strike: 95, DTE: 10})
	assert.False(t, ok)
	assert.Equal(t, contracts.DeltaOTMFallback, src)

	// IV 없음
	_, src, ok = ResolveDelta(DeltaInputs{Strategy: contracts.StrategyCall, RiskFreeRate: &rfr, Spot: 100, Strike: 105, DTE: 10})
	assert.False(t, ok)
	assert.Equal(t, contracts.DeltaOTMFallback, src)
}

func TestPassesDeltaOrOTM(t *testing.T) {
	e := Eligibility{
		PutDelta:  Band{Min: -0.35, Max: -0.15},
		CallDelta: Band{Min: 0.15, Max: 0.35},
		PutOTM:    Band{Min: 0.05, Max: 0.15},
		CallOTM:   Band{Min: 0.05, Max: 0.15},
	}

	tests := []struct {
		name     string
		strategy contracts.Strategy
		delta    float64
		hasDelta bool
		otm      float64
		hasOTM   bool
		want     bool
	}{
		{"put delta inside", contracts.StrategyPut, -0.22, true, 0.01, true, true},
		{"put delta outside ignores otm", contracts.StrategyPut, -0.40, true, 0.10, true, false},
		{"call delta boundary", contracts.StrategyCall, 0.35, true, 0, true, true},
		{"otm fallback inside", contracts.StrategyCall, 0, false, 0.08, true, true},
		{"otm fallback outside", contracts.StrategyPut, 0, false, 0.20, true, false},
		{"nothing known", contracts.StrategyPut, 0, false, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.PassesDeltaOrOTM(tt.strategy, tt.delta, tt.hasDelta, tt.otm, tt.hasOTM))
		})
	}
}

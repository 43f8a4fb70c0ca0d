package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

var runDay = calendar.Date(2024, time.March, 1)

type fakeMarket struct {
	histories map[string]contracts.PriceHistory
	failures  map[string]error
}

func (f *fakeMarket) GetPriceHistory(_ context.Context, ticker, _, _ string) (contracts.PriceHistory, error) {
	if err := f.failures[ticker]; err != nil {
		return nil, err
	}
	return f.histories[ticker], nil
}

type fakeOptions struct {
	expirations []time.Time
	chain       contracts.OptionsChain
	chainCalls  map[string]int
}

func (f *fakeOptions) GetExpirations(_ context.Context, _ string) ([]time.Time, error) {
	return f.expirations, nil
}

func (f *fakeOptions) GetOptionsChain(_ context.Context, ticker string, _ time.Time) (contracts.OptionsChain, error) {
	f.chainCalls[ticker]++
	return f.chain, nil
}

type fakeFundamentals struct{ err error }

func (f *fakeFundamentals) GetEarningsDate(_ context.Context, _ string, _ time.Time) (*time.Time, error) {
	return nil, f.err
}

type fakeAuditor struct{ decisions map[string]int }

func (f *fakeAuditor) LogScreeningDecision(ticker string, _ contracts.ScreeningDecision) {
	f.decisions[ticker]++
}

type fakeStore struct {
	saved []*contracts.RunResult
	err   error
}

func (f *fakeStore) SaveRun(_ context.Context, run *contracts.RunResult) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeStore) GetRun(context.Context, string) (*contracts.RunResult, error) { return nil, nil }
func (f *fakeStore) GetLatestRun(context.Context) (*contracts.RunResult, error) { return nil, nil }
func (f *fakeStore) ListRuns(context.Context, int) ([]contracts.RunSummary, error) {
	return nil, nil
}

func testHistory() contracts.PriceHistory {
	h := make(contracts.PriceHistory, 60)
	for i := range h {
		c := 100.0
		if i%2 == 1 {
			c = 101.0
		}
		h[i] = contracts.PriceBar{Date: runDay.AddDate(0, 0, i-60), Open: c, High: c, Low: c, Close: c}
	}
	return h
}

type fixture struct {
	market   *fakeMarket
	options  *fakeOptions
	auditor  *fakeAuditor
	store    *fakeStore
	provider contracts.DataProviders
}

func newFixture() *fixture {
	f := &fixture{
		market: &fakeMarket{
			histories: map[string]contracts.PriceHistory{
				"AAA": testHistory(),
				"BBB": {},
			},
			failures: map[string]error{"FAIL": errors.New("upstream 500")},
		},
		options: &fakeOptions{
			expirations: []time.Time{
				calendar.Date(2024, time.March, 8),
				calendar.Date(2024, time.March, 15),
				calendar.Date(2024, time.April, 5),
			},
			chain: contracts.OptionsChain{
				Puts: []contracts.RawChainRow{{
					ContractSymbol:    "AAA240308P00095000",
					Strike:            contracts.F(95),
					Bid:               contracts.F(1.40),
					Ask:               contracts.F(1.60),
					Volume:            contracts.F(50),
					OpenInterest:      contracts.F(500),
					ImpliedVolatility: contracts.F(0.30),
					Delta:             contracts.F(-0.22),
				}},
				Calls: []contracts.RawChainRow{{
					ContractSymbol:    "AAA240308C00107000",
					Strike:            contracts.F(107),
					Bid:               contracts.F(1.40),
					Ask:               contracts.F(1.60),
					Volume:            contracts.F(50),
					OpenInterest:      contracts.F(500),
					ImpliedVolatility: contracts.F(0.30),
					Delta:             contracts.F(0.22),
				}},
			},
			chainCalls: map[string]int{},
		},
		auditor: &fakeAuditor{decisions: map[string]int{}},
		store:   &fakeStore{},
	}
	f.provider = contracts.DataProviders{
		Market:       f.market,
		Options:      f.options,
		Fundamentals: &fakeFundamentals{err: errors.New("quoteSummary unavailable")},
	}
	return f
}

func (f *fixture) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(strategyconfig.Default(), f.provider, f.auditor, f.store, logger.NewNop())
	require.NoError(t, err)
	return o
}

func TestOrchestratorRun(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{
		RunID:                 "run-1",
		Today:                 runDay.Add(15 * time.Hour),
		CoveredCallTickers:    []string{"aaa"},
		CashSecuredPutTickers: []string{"AAA", "bbb", "FAIL"},
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, runDay, result.Today)
	assert.Equal(t, o.ConfigHash(), result.ConfigHash)
	assert.Equal(t, []string{"AAA", "BBB", "FAIL"}, result.Tickers)
	assert.Equal(t, []string{StageScreen, StagePutRecommend, StageCallRecommend, StageSave}, result.CompletedStages)

	require.Contains(t, result.FailedTickers, "FAIL")
	assert.Contains(t, result.FailedTickers["FAIL"], "upstream 500")

	// AAA: 3 buckets x (PUT + CALL)
	require.Len(t, result.Candidates, 6)
	for _, c := range result.Candidates {
		assert.Equal(t, "AAA", c.Ticker)
		assert.NotZero(t, c.Score)
		assert.NotEmpty(t, c.Rationale)
		assert.Nil(t, c.EarningsDate, "earnings error is treated as unknown")
	}
	assert.Equal(t, 3, f.options.chainCalls["AAA"])
	assert.Zero(t, f.options.chainCalls["BBB"], "empty history skips the ticker")
	assert.Equal(t, 6, f.auditor.decisions["AAA"])

	buckets := result.Buckets["AAA"]
	require.NotNil(t, buckets.Monthly.Expiration)
	assert.Equal(t, calendar.Date(2024, time.April, 5), *buckets.Monthly.Expiration)

	// PUT: AAA, BBB / CALL: AAA Short-Term + Monthly
	assert.Len(t, result.PutVerdicts, 2)
	assert.Len(t, result.CallVerdicts, 2)
	for _, v := range result.PutVerdicts {
		if v.Ticker == "BBB" {
			assert.Equal(t, contracts.VerdictNo, v.Verdict)
			assert.Equal(t, "No monthly PUT candidates survived initial screening", v.Reason)
		}
	}

	require.Len(t, f.store.saved, 1)
	assert.Same(t, result, f.store.saved[0])
}

func TestOrchestratorRunStrategiesPerTicker(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{
		RunID:                 "run-2",
		Today:                 runDay,
		CashSecuredPutTickers: []string{"AAA"},
	})
	require.NoError(t, err)

	require.Len(t, result.Candidates, 3)
	for _, c := range result.Candidates {
		assert.Equal(t, contracts.StrategyPut, c.Strategy)
	}
	assert.Empty(t, result.CallVerdicts)
	assert.Len(t, result.PutVerdicts, 1)
}

func TestOrchestratorRunMaxCandidatesOverride(t *testing.T) {
	f := newFixture()
	f.options.chain.Puts = append(f.options.chain.Puts, contracts.RawChainRow{
		ContractSymbol:    "AAA-P93",
		Strike:            contracts.F(93),
		Bid:               contracts.F(1.20),
		Ask:               contracts.F(1.30),
		Volume:            contracts.F(50),
		OpenInterest:      contracts.F(500),
		ImpliedVolatility: contracts.F(0.30),
		Delta:             contracts.F(-0.18),
	})
	o := f.orchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{
		Today:                  runDay,
		CashSecuredPutTickers:  []string{"AAA"},
		MaxCandidatesPerBucket: 1,
	})
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 3)
}

func TestOrchestratorRunDefaultsToConfigTickers(t *testing.T) {
	f := newFixture()
	cfg := strategyconfig.Default()
	cfg.Tickers = strategyconfig.Tickers{CoveredCall: []string{"AAA"}, CashSecuredPut: []string{"BBB"}}

	o, err := NewOrchestrator(cfg, f.provider, nil, nil, logger.NewNop())
	require.NoError(t, err)

	result, err := o.Run(context.Background(), RunConfig{Today: runDay})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, result.Tickers)
	assert.NotContains(t, result.CompletedStages, StageSave)
}

func TestOrchestratorRunSaveError(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("db down")
	o := f.orchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{Today: runDay, CoveredCallTickers: []string{"AAA"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	require.NotNil(t, result)
	assert.NotContains(t, result.CompletedStages, StageSave)
}

func TestOrchestratorRunCancelled(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, RunConfig{Today: runDay, CoveredCallTickers: []string{"AAA"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOrchestratorRequiresProviders(t *testing.T) {
	_, err := NewOrchestrator(strategyconfig.Default(), contracts.DataProviders{}, nil, nil, logger.NewNop())
	assert.Error(t, err)
}

func TestPlanTickers(t *testing.T) {
	plans := planTickers([]string{"spy", " qqq ", "SPY", ""}, []string{"QQQ", "msft"})

	require.Len(t, plans, 3)
	assert.Equal(t, "SPY", plans[0].ticker)
	assert.Equal(t, []contracts.Strategy{contracts.StrategyCall}, plans[0].strategies)
	assert.Equal(t, "QQQ", plans[1].ticker)
	assert.Equal(t, []contracts.Strategy{contracts.StrategyCall, contracts.StrategyPut}, plans[1].strategies)
	assert.Equal(t, "MSFT", plans[2].ticker)
	assert.True(t, plans[2].wants(contracts.StrategyPut))
	assert.False(t, plans[2].wants(contracts.StrategyCall))
}

package commands

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/strategyconfig"
)

func TestResolveTickers(t *testing.T) {
	base := strategyconfig.Tickers{
		CoveredCall:    []string{"AAPL"},
		CashSecuredPut: []string{"KO", "PEP"},
	}

	tests := []struct {
		name                 string
		tickers, calls, puts string
		wantCalls, wantPuts  []string
	}{
		{name: "no flags", wantCalls: []string{"AAPL"}, wantPuts: []string{"KO", "PEP"}},
		{name: "tickers sets both", tickers: " spy, qqq ,", wantCalls: []string{"SPY", "QQQ"}, wantPuts: []string{"SPY", "QQQ"}},
		{name: "puts only", puts: "msft", wantCalls: []string{"AAPL"}, wantPuts: []string{"MSFT"}},
		{name: "calls override tickers", tickers: "SPY", calls: "nvda", wantCalls: []string{"NVDA"}, wantPuts: []string{"SPY"}},
		{name: "blank flag ignored", calls: " , ", wantCalls: []string{"AAPL"}, wantPuts: []string{"KO", "PEP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, puts := resolveTickers(base, tt.tickers, tt.calls, tt.puts)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantPuts, puts)
		})
	}
}

func TestResolveToday(t *testing.T) {
	d, err := resolveToday("2024-03-04", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.March, 4), d)

	_, err = resolveToday("03/04/2024", time.UTC)
	assert.Error(t, err)

	d, err = resolveToday("", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, calendar.Today(time.UTC), d)
}

func TestCountCandidates(t *testing.T) {
	cands := []contracts.ScreeningCandidate{
		{Ticker: "SPY", Bucket: contracts.BucketMonthly, Strategy: contracts.StrategyPut},
		{Ticker: "AAPL", Bucket: contracts.BucketCurrentWeek, Strategy: contracts.StrategyCall},
		{Ticker: "SPY", Bucket: contracts.BucketMonthly, Strategy: contracts.StrategyPut},
		{Ticker: "SPY", Bucket: contracts.BucketMonthly, Strategy: contracts.StrategyCall},
	}

	counts := countCandidates(cands)
	require.Len(t, counts, 3)
	assert.Equal(t, candidateCount{Ticker: "AAPL", Bucket: contracts.BucketCurrentWeek, Strategy: contracts.StrategyCall, Count: 1}, counts[0])
	assert.Equal(t, candidateCount{Ticker: "SPY", Bucket: contracts.BucketMonthly, Strategy: contracts.StrategyCall, Count: 1}, counts[1])
	assert.Equal(t, candidateCount{Ticker: "SPY", Bucket: contracts.BucketMonthly, Strategy: contracts.StrategyPut, Count: 2}, counts[2])

	assert.Empty(t, countCandidates(nil))
}

func TestTopCandidates(t *testing.T) {
	cands := []contracts.ScreeningCandidate{
		{ContractSymbol: "a", Score: 0.5},
		{ContractSymbol: "b", Score: 0.9},
		{ContractSymbol: "c", Score: 0.5},
		{ContractSymbol: "d", Score: 0.7},
	}

	top := topCandidates(cands, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].ContractSymbol)
	assert.Equal(t, "d", top[1].ContractSymbol)
	assert.Equal(t, "a", top[2].ContractSymbol, "ties keep input order")
	assert.Equal(t, "a", cands[0].ContractSymbol, "input untouched")

	assert.Len(t, topCandidates(cands[:1], 3), 1)
}

func TestBucketLine(t *testing.T) {
	exp := calendar.Date(2024, time.March, 8)
	set := contracts.BucketSet{
		CurrentWeek: contracts.ExpirationBucket{Name: contracts.BucketCurrentWeek, Label: "Current Week", Expiration: &exp},
		NextWeek:    contracts.ExpirationBucket{Name: contracts.BucketNextWeek},
		Monthly:     contracts.ExpirationBucket{Name: contracts.BucketMonthly, Label: "Monthly (fallback)"},
	}
	assert.Equal(t, "Current Week: 2024-03-08 | next_week: N/A | Monthly (fallback): N/A", bucketLine(set))
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := strategyconfig.Default()
	run := &contracts.RunResult{RunID: "run-7", StartedAt: time.Date(2024, 3, 4, 14, 45, 0, 0, time.UTC)}

	path, err := writeSnapshot(cfg, []byte("meta: {}\n"), run, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap strategyconfig.RunSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "run-7", snap.RunID)
	assert.Equal(t, cfg.Meta.StrategyID, snap.StrategyID)
	assert.Equal(t, "meta: {}\n", snap.ConfigYAML)

	hash, err := strategyconfig.Hash(cfg)
	require.NoError(t, err)
	assert.Equal(t, hash, snap.ConfigHash)
}

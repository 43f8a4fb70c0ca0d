package contracts

import (
	"context"
	"time"
)

// MarketDataProvider serves daily price history.
type MarketDataProvider interface {
	GetPriceHistory(ctx context.Context, ticker, period, interval string) (PriceHistory, error)
}

// OptionsChainProvider serves listed expirations and per-expiration chains.
type OptionsChainProvider interface {
	GetExpirations(ctx context.Context, ticker string) ([]time.Time, error)
	GetOptionsChain(ctx context.Context, ticker string, expiration time.Time) (OptionsChain, error)
}

// FundamentalsProvider serves the next earnings date on or after today.
// A nil date with nil error means "unknown".
type FundamentalsProvider interface {
	GetEarningsDate(ctx context.Context, ticker string, today time.Time) (*time.Time, error)
}

// ScreeningAuditor is an optional hook receiving row-level screening decisions.
type ScreeningAuditor interface {
	LogScreeningDecision(ticker string, decision ScreeningDecision)
}

// DataProviders is the provider arena injected by the composition root.
type DataProviders struct {
	Market       MarketDataProvider
	Options      OptionsChainProvider
	Fundamentals FundamentalsProvider
}

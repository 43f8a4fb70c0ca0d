package providers

import (
	"context"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
	"github.com/wonny/optincome/pkg/redis"
)

// Cache is the subset of redis.Cache the provider cache needs
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CacheTTLs per data kind
type CacheTTLs struct {
	History     time.Duration
	Expirations time.Duration
	Chain       time.Duration
	Earnings    time.Duration
}

// DefaultCacheTTLs uses history for price bars (falls back to redis.TTLMedium).
func DefaultCacheTTLs(history time.Duration) CacheTTLs {
	if history <= 0 {
		history = redis.TTLMedium
	}
	return CacheTTLs{
		History:     history,
		Expirations: redis.TTLMedium,
		Chain:       redis.TTLShort,
		Earnings:    redis.TTLLong,
	}
}

// CachedProvider serves provider reads from Redis when possible.
// Cache errors are logged and the upstream is called instead.
type CachedProvider struct {
	upstream contracts.DataProviders
	cache    Cache
	ttls     CacheTTLs
	logger   *logger.Logger
}

// NewCachedProvider wraps upstream with cache
func NewCachedProvider(upstream contracts.DataProviders, cache Cache, ttls CacheTTLs, log *logger.Logger) *CachedProvider {
	return &CachedProvider{upstream: upstream, cache: cache, ttls: ttls, logger: log}
}

var (
	_ contracts.MarketDataProvider   = (*CachedProvider)(nil)
	_ contracts.OptionsChainProvider = (*CachedProvider)(nil)
	_ contracts.FundamentalsProvider = (*CachedProvider)(nil)
)

// Providers exposes the wrapper as a provider arena.
func (p *CachedProvider) Providers() contracts.DataProviders {
	return contracts.DataProviders{Market: p, Options: p, Fundamentals: p}
}

func (p *CachedProvider) lookup(ctx context.Context, key string, dest interface{}) bool {
	hit, err := p.cache.Get(ctx, key, dest)
	if err != nil {
		p.logger.WithField("key", key).WithError(err).Warn("Cache read failed")
		return false
	}
	return hit
}

func (p *CachedProvider) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := p.cache.Set(ctx, key, value, ttl); err != nil {
		p.logger.WithField("key", key).WithError(err).Warn("Cache write failed")
	}
}

// GetPriceHistory caches non-empty histories only.
func (p *CachedProvider) GetPriceHistory(ctx context.Context, ticker, period, interval string) (contracts.PriceHistory, error) {
	key := redis.HistoryKey(ticker, period, interval)
	var cached contracts.PriceHistory
	if p.lookup(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	history, err := p.upstream.Market.GetPriceHistory(ctx, ticker, period, interval)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		p.store(ctx, key, history, p.ttls.History)
	}
	return history, nil
}

// GetExpirations caches non-empty expiration lists.
func (p *CachedProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	key := redis.ExpirationsKey(ticker)
	var cached []time.Time
	if p.lookup(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	exps, err := p.upstream.Options.GetExpirations(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(exps) > 0 {
		p.store(ctx, key, exps, p.ttls.Expirations)
	}
	return exps, nil
}

// GetOptionsChain caches one expiration's chain.
func (p *CachedProvider) GetOptionsChain(ctx context.Context, ticker string, expiration time.Time) (contracts.OptionsChain, error) {
	key := redis.ChainKey(ticker, calendar.Format(expiration))
	var cached contracts.OptionsChain
	if p.lookup(ctx, key, &cached) {
		return cached, nil
	}

	chain, err := p.upstream.Options.GetOptionsChain(ctx, ticker, expiration)
	if err != nil {
		return contracts.OptionsChain{}, err
	}
	if len(chain.Calls)+len(chain.Puts) > 0 {
		p.store(ctx, key, chain, p.ttls.Chain)
	}
	return chain, nil
}

// earningsEntry distinguishes a cached "unknown" from a miss
type earningsEntry struct {
	Date *time.Time `json:"date"`
}

// GetEarningsDate caches per (ticker, today), including unknown results.
func (p *CachedProvider) GetEarningsDate(ctx context.Context, ticker string, today time.Time) (*time.Time, error) {
	key := redis.EarningsKey(ticker, calendar.Format(today))
	var cached earningsEntry
	if p.lookup(ctx, key, &cached) {
		return cached.Date, nil
	}

	date, err := p.upstream.Fundamentals.GetEarningsDate(ctx, ticker, today)
	if err != nil {
		return nil, err
	}
	p.store(ctx, key, earningsEntry{Date: date}, p.ttls.Earnings)
	return date, nil
}

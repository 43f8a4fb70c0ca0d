package providers

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

// BreakerSettings configures the provider circuit breaker
type BreakerSettings struct {
	MaxRequests  uint32        // half-open 상태 허용 요청 수
	Interval     time.Duration // 카운트 리셋 주기
	Timeout      time.Duration // open 유지 시간
	MinRequests  uint32        // trip 판단 최소 요청 수
	FailureRatio float64
}

// DefaultBreakerSettings trips at 60% failures over at least 5 requests.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// BreakerProvider short-circuits provider calls after repeated failures.
// Context cancellation does not count as a failure.
type BreakerProvider struct {
	upstream contracts.DataProviders
	breaker  *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps upstream with a named circuit breaker
func NewBreakerProvider(name string, upstream contracts.DataProviders, settings BreakerSettings, log *logger.Logger) *BreakerProvider {
	return &BreakerProvider{
		upstream: upstream,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests == 0 || counts.Requests < settings.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureRatio
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		}),
	}
}

var (
	_ contracts.MarketDataProvider   = (*BreakerProvider)(nil)
	_ contracts.OptionsChainProvider = (*BreakerProvider)(nil)
	_ contracts.FundamentalsProvider = (*BreakerProvider)(nil)
)

// Providers exposes the wrapper as a provider arena.
func (b *BreakerProvider) Providers() contracts.DataProviders {
	return contracts.DataProviders{Market: b, Options: b, Fundamentals: b}
}

// State returns the breaker state
func (b *BreakerProvider) State() gobreaker.State {
	return b.breaker.State()
}

func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// GetPriceHistory wraps the market provider
func (b *BreakerProvider) GetPriceHistory(ctx context.Context, ticker, period, interval string) (contracts.PriceHistory, error) {
	return execBreaker(b.breaker, func() (contracts.PriceHistory, error) {
		return b.upstream.Market.GetPriceHistory(ctx, ticker, period, interval)
	})
}

// GetExpirations wraps the options provider
func (b *BreakerProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return execBreaker(b.breaker, func() ([]time.Time, error) {
		return b.upstream.Options.GetExpirations(ctx, ticker)
	})
}

// GetOptionsChain wraps the options provider
func (b *BreakerProvider) GetOptionsChain(ctx context.Context, ticker string, expiration time.Time) (contracts.OptionsChain, error) {
	return execBreaker(b.breaker, func() (contracts.OptionsChain, error) {
		return b.upstream.Options.GetOptionsChain(ctx, ticker, expiration)
	})
}

// GetEarningsDate wraps the fundamentals provider
func (b *BreakerProvider) GetEarningsDate(ctx context.Context, ticker string, today time.Time) (*time.Time, error) {
	return execBreaker(b.breaker, func() (*time.Time, error) {
		return b.upstream.Fundamentals.GetEarningsDate(ctx, ticker, today)
	})
}

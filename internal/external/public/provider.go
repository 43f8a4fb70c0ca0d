// Package public is a placeholder options source for the Public.com API.
// It returns no data so a run configured with it completes without candidates.
package public

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

// Provider is the Public.com options scaffold
type Provider struct {
	logger *logger.Logger
	warn   sync.Once
}

// NewProvider creates the scaffold provider
func NewProvider(log *logger.Logger) *Provider {
	return &Provider{logger: log}
}

var _ contracts.OptionsChainProvider = (*Provider)(nil)

func (p *Provider) warnNotImplemented() {
	p.warn.Do(func() {
		p.logger.Warn("Public options provider scaffold is active; API calls are not implemented yet")
	})
}

// GetExpirations always returns no expirations.
func (p *Provider) GetExpirations(_ context.Context, ticker string) ([]time.Time, error) {
	p.warnNotImplemented()
	p.logger.WithField("ticker", ticker).Info("Public provider returning no expirations (not implemented)")
	return []time.Time{}, nil
}

// GetOptionsChain always returns an empty chain.
func (p *Provider) GetOptionsChain(_ context.Context, ticker string, expiration time.Time) (contracts.OptionsChain, error) {
	p.warnNotImplemented()
	p.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"expiration": calendar.Format(expiration),
	}).Info("Public provider returning empty option chain (not implemented)")
	return contracts.OptionsChain{}, nil
}

// Package providers assembles the data provider arena: source selection by
// name, the per-ticker audit trail, Redis caching and a circuit breaker.
package providers

import (
	"fmt"
	"strings"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/internal/external/public"
	"github.com/wonny/optincome/internal/external/yahoo"
	"github.com/wonny/optincome/internal/strategyconfig"
	"github.com/wonny/optincome/pkg/logger"
)

// Provider names
const (
	NameYahoo  = "yahoo"
	NamePublic = "public"
)

// Sources are the concrete clients a factory can select from.
type Sources struct {
	Yahoo *yahoo.Client
}

// Options tune the wrappers applied around the selected sources.
type Options struct {
	Cache   Cache // nil disables caching
	TTLs    CacheTTLs
	Breaker *BreakerSettings // nil disables the circuit breaker
}

func normalize(name, def string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return def
	}
	return name
}

// Build selects one provider per data domain from cfg and wraps them as
// breaker(cache(source)).
func Build(cfg strategyconfig.Data, src Sources, opts Options, log *logger.Logger) (contracts.DataProviders, error) {
	var out contracts.DataProviders

	switch name := normalize(cfg.OptionsProvider, NameYahoo); name {
	case NameYahoo:
		out.Options = src.Yahoo
	case NamePublic:
		out.Options = public.NewProvider(log)
	default:
		return out, fmt.Errorf("unsupported options_provider=%q, expected one of: %s, %s", name, NameYahoo, NamePublic)
	}

	switch name := normalize(cfg.MarketProvider, NameYahoo); name {
	case NameYahoo:
		out.Market = src.Yahoo
	default:
		return out, fmt.Errorf("unsupported market_provider=%q, expected one of: %s", name, NameYahoo)
	}

	switch name := normalize(cfg.FundamentalsProvider, NameYahoo); name {
	case NameYahoo:
		out.Fundamentals = src.Yahoo
	default:
		return out, fmt.Errorf("unsupported fundamentals_provider=%q, expected one of: %s", name, NameYahoo)
	}

	if src.Yahoo == nil {
		return out, fmt.Errorf("yahoo client is required")
	}

	if opts.Cache != nil {
		out = NewCachedProvider(out, opts.Cache, opts.TTLs, log).Providers()
	}
	if opts.Breaker != nil {
		out = NewBreakerProvider("market-data", out, *opts.Breaker, log).Providers()
	}
	return out, nil
}

package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

type optionsResponse struct {
	OptionChain struct {
		Result []optionsResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"optionChain"`
}

type optionsResult struct {
	UnderlyingSymbol string  `json:"underlyingSymbol"`
	ExpirationDates  []int64 `json:"expirationDates"`
	Quote            struct {
		QuoteType string `json:"quoteType"`
	} `json:"quote"`
	Options []struct {
		ExpirationDate int64                   `json:"expirationDate"`
		Calls          []contracts.RawChainRow `json:"calls"`
		Puts           []contracts.RawChainRow `json:"puts"`
	} `json:"options"`
}

func (c *Client) fetchOptions(ctx context.Context, ticker string, params url.Values) (*optionsResult, error) {
	var resp optionsResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(ticker), params, &resp); err != nil {
		return nil, err
	}
	if err := resp.OptionChain.Error.err(); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return &optionsResult{}, nil
	}
	return &resp.OptionChain.Result[0], nil
}

// GetExpirations returns the sorted, de-duplicated listed expirations.
func (c *Client) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	result, err := c.fetchOptions(ctx, ticker, nil)
	if err != nil {
		c.record(ticker, contracts.ProviderEvent{
			Event:   contracts.EventOptionsExpirations,
			Status:  "error",
			Message: err.Error(),
		})
		return nil, fmt.Errorf("options %s: %w", ticker, err)
	}

	seen := make(map[time.Time]bool, len(result.ExpirationDates))
	out := make([]time.Time, 0, len(result.ExpirationDates))
	for _, ts := range result.ExpirationDates {
		if ts <= 0 {
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"value":  ts,
			}).Warn("Invalid expiration from Yahoo")
			continue
		}
		d := expirationDate(ts)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	for i := range out {
		c.record(ticker, contracts.ProviderEvent{
			Event:           contracts.EventOptionsExpirations,
			ExpirationValue: &out[i],
			Status:          "ok",
		})
	}
	return out, nil
}

// GetOptionsChain returns both sides of one expiration.
func (c *Client) GetOptionsChain(ctx context.Context, ticker string, expiration time.Time) (contracts.OptionsChain, error) {
	exp := calendar.Truncate(expiration)
	params := url.Values{}
	params.Set("date", strconv.FormatInt(exp.Unix(), 10))

	result, err := c.fetchOptions(ctx, ticker, params)
	if err != nil {
		c.record(ticker, contracts.ProviderEvent{
			Event:      contracts.EventOptionsChain,
			Expiration: &exp,
			Status:     "error",
			Message:    err.Error(),
		})
		return contracts.OptionsChain{}, fmt.Errorf("options chain %s %s: %w", ticker, calendar.Format(exp), err)
	}

	var chain contracts.OptionsChain
	for _, o := range result.Options {
		if expirationDate(o.ExpirationDate).Equal(exp) {
			chain.Calls = append(chain.Calls, o.Calls...)
			chain.Puts = append(chain.Puts, o.Puts...)
		}
	}

	for _, side := range []struct {
		strategy contracts.Strategy
		rows     []contracts.RawChainRow
	}{{contracts.StrategyCall, chain.Calls}, {contracts.StrategyPut, chain.Puts}} {
		if len(side.rows) == 0 {
			c.record(ticker, contracts.ProviderEvent{
				Event:      contracts.EventOptionsChain,
				Expiration: &exp,
				OptionType: side.strategy,
				Status:     "empty",
			})
			continue
		}
		for _, r := range side.rows {
			c.record(ticker, contracts.ProviderEvent{
				Event:             contracts.EventOptionsChain,
				Expiration:        &exp,
				OptionType:        side.strategy,
				ContractSymbol:    r.ContractSymbol,
				Strike:            r.Strike,
				Bid:               r.Bid,
				Ask:               r.Ask,
				LastPrice:         r.LastPrice,
				Volume:            r.Volume,
				OpenInterest:      r.OpenInterest,
				ImpliedVolatility: r.ImpliedVolatility,
				Status:            "ok",
			})
		}
	}

	return chain, nil
}

// expirationDate maps Yahoo's UTC-midnight epoch seconds to a calendar date.
func expirationDate(ts int64) time.Time {
	return calendar.Truncate(time.Unix(ts, 0).UTC())
}

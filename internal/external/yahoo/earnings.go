package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

// quoteTypes that never report earnings
var noEarningsQuoteTypes = map[string]bool{
	"ETF":            true,
	"INDEX":          true,
	"MUTUALFUND":     true,
	"CRYPTOCURRENCY": true,
	"CURRENCY":       true,
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				QuoteType string `json:"quoteType"`
			} `json:"price"`
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []contracts.Float `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// GetEarningsDate returns the first earnings date on or after today.
// Instruments without earnings and unknown symbols return nil, nil.
func (c *Client) GetEarningsDate(ctx context.Context, ticker string, today time.Time) (*time.Time, error) {
	today = calendar.Truncate(today)
	event := contracts.ProviderEvent{Event: contracts.EventEarningsLookup}

	params := url.Values{}
	params.Set("modules", "price,calendarEvents")

	var resp quoteSummaryResponse
	err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), params, &resp)
	if err == nil {
		err = resp.QuoteSummary.Error.err()
	}
	if errors.Is(err, ErrNotFound) {
		c.logger.WithField("ticker", ticker).Info("Earnings not available for this symbol")
		event.Status, event.Message = "unavailable", "earnings not available"
		c.record(ticker, event)
		return nil, nil
	}
	if err != nil {
		event.Status, event.Message = "error", err.Error()
		c.record(ticker, event)
		return nil, fmt.Errorf("quoteSummary %s: %w", ticker, err)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		event.Status, event.Message = "empty", "quoteSummary empty"
		c.record(ticker, event)
		return nil, nil
	}
	result := resp.QuoteSummary.Result[0]

	quoteType := strings.ToUpper(result.Price.QuoteType)
	c.record(ticker, contracts.ProviderEvent{
		Event:   contracts.EventEarningsLookup,
		Status:  "info",
		Message: "quoteType=" + quoteType,
	})
	if noEarningsQuoteTypes[quoteType] {
		c.logger.WithFields(map[string]interface{}{
			"ticker":     ticker,
			"quote_type": quoteType,
		}).Info("Instrument does not report earnings, skipping")
		event.Status, event.Message = "skipped", "instrument type does not report earnings"
		c.record(ticker, event)
		return nil, nil
	}

	for _, raw := range result.CalendarEvents.Earnings.EarningsDate {
		if !raw.Valid || raw.V <= 0 {
			continue
		}
		d := calendar.Truncate(time.Unix(int64(raw.V), 0).UTC())
		if d.Before(today) {
			continue
		}
		event.Status = "ok"
		event.EarningsDate = &d
		event.Message = "source=calendarEvents"
		c.record(ticker, event)
		return &d, nil
	}

	event.Status, event.Message = "empty", "no upcoming earnings date"
	c.record(ticker, event)
	return nil, nil
}

package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/optincome/internal/calendar"
	"github.com/wonny/optincome/internal/contracts"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol           string `json:"symbol"`
		ExchangeTimezone string `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []contracts.Float `json:"open"`
			High   []contracts.Float `json:"high"`
			Low    []contracts.Float `json:"low"`
			Close  []contracts.Float `json:"close"`
			Volume []contracts.Float `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// GetPriceHistory returns ascending daily bars. An unknown symbol or an empty
// chart yields an empty history without error.
func (c *Client) GetPriceHistory(ctx context.Context, ticker, period, interval string) (contracts.PriceHistory, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)
	params.Set("includePrePost", "false")
	params.Set("events", "div,splits")

	event := contracts.ProviderEvent{Event: contracts.EventPriceHistory, Period: period, Interval: interval}

	var resp chartResponse
	err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), params, &resp)
	if err == nil {
		err = resp.Chart.Error.err()
	}
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	if err != nil {
		event.Status, event.Message = "error", err.Error()
		c.record(ticker, event)
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}

	var history contracts.PriceHistory
	if len(resp.Chart.Result) > 0 {
		history = barsFrom(resp.Chart.Result[0])
	}

	rows := len(history)
	event.HistoryRows = &rows
	if rows == 0 {
		c.logger.WithFields(map[string]interface{}{
			"ticker":   ticker,
			"period":   period,
			"interval": interval,
		}).Info("Yahoo history returned empty")
		event.Status = "empty"
		c.record(ticker, event)
		return contracts.PriceHistory{}, nil
	}

	start, end := history[0].Date, history[rows-1].Date
	event.HistoryStart, event.HistoryEnd = &start, &end
	event.LastPrice = contracts.F(history[rows-1].Close)
	event.Status = "ok"
	c.record(ticker, event)

	return history, nil
}

// barsFrom zips the parallel arrays, dropping bars without a close.
func barsFrom(r chartResult) contracts.PriceHistory {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	loc := time.UTC
	if r.Meta.ExchangeTimezone != "" {
		if l, err := time.LoadLocation(r.Meta.ExchangeTimezone); err == nil {
			loc = l
		}
	}

	at := func(series []contracts.Float, i int) contracts.Float {
		if i < len(series) {
			return series[i]
		}
		return contracts.Float{}
	}

	out := make(contracts.PriceHistory, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if !closePx.Valid || closePx.V <= 0 {
			continue
		}
		out = append(out, contracts.PriceBar{
			// 거래소 현지 날짜 기준
			Date:   calendar.Truncate(time.Unix(ts, 0).In(loc)),
			Open:   at(q.Open, i).Or(closePx.V),
			High:   at(q.High, i).Or(closePx.V),
			Low:    at(q.Low, i).Or(closePx.V),
			Close:  closePx.V,
			Volume: int64(at(q.Volume, i).Or(0)),
		})
	}
	return out
}

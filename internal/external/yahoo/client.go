// Package yahoo reads price history, option chains and earnings dates from
// the Yahoo Finance JSON endpoints.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/httputil"
	"github.com/wonny/optincome/pkg/logger"
)

// ErrNotFound is returned when Yahoo reports an unknown symbol.
var ErrNotFound = errors.New("yahoo: symbol not found")

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	events     contracts.EventRecorder
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithEventRecorder sends every fetch outcome to r (nil disables).
func (c *Client) WithEventRecorder(r contracts.EventRecorder) *Client {
	c.events = r
	return c
}

func (c *Client) record(ticker string, e contracts.ProviderEvent) {
	if c.events != nil {
		c.events.RecordEvent(ticker, e)
	}
}

// apiError is the error object embedded in every Yahoo envelope
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) err() error {
	if e == nil {
		return nil
	}
	if strings.EqualFold(e.Code, "Not Found") {
		return fmt.Errorf("%w: %s", ErrNotFound, e.Description)
	}
	return fmt.Errorf("yahoo error %s: %s", e.Code, e.Description)
}

// getJSON fetches path (relative to baseURL) and decodes the body into dest.
// A 404 maps to ErrNotFound.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	err := c.httpClient.GetJSON(ctx, fullURL, dest)
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return err
}

// Compile-time interface checks
var (
	_ contracts.MarketDataProvider   = (*Client)(nil)
	_ contracts.OptionsChainProvider = (*Client)(nil)
	_ contracts.FundamentalsProvider = (*Client)(nil)
)

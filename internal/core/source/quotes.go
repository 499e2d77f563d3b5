package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/marketfeed/marketfeed/internal/core"
)

const (
	// DefaultQuotesBaseURL is the Alpha Vantage query endpoint.
	DefaultQuotesBaseURL = "https://www.alphavantage.co/query"
	// DefaultQuoteFunction selects the daily time series.
	DefaultQuoteFunction = "TIME_SERIES_DAILY"
)

// QuotesClient fetches stock time series from Alpha Vantage.
type QuotesClient struct {
	client
	apiKey string
}

// NewQuotesClient returns a quotes client. The API key is required.
func NewQuotesClient(apiKey string, limiter Limiter, options ...Option) (*QuotesClient, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, &ConfigurationError{Service: core.ServiceQuotes, Field: "quotes API key"}
	}
	return &QuotesClient{
		client: newClient(core.ServiceQuotes, DefaultQuotesBaseURL, limiter, options),
		apiKey: key,
	}, nil
}

// Fetch returns the client's default time series for symbol.
func (c *QuotesClient) Fetch(ctx context.Context, symbol string) (json.RawMessage, error) {
	return c.GetStockData(ctx, symbol, "")
}

// GetStockData returns the raw series payload for symbol. An empty function
// selects the client default, DefaultQuoteFunction unless WithQuoteFunction
// set another.
func (c *QuotesClient) GetStockData(ctx context.Context, symbol string, function string) (json.RawMessage, error) {
	function = strings.TrimSpace(function)
	if function == "" {
		function = c.quoteFunction
	}

	query := url.Values{}
	query.Set("function", function)
	query.Set("symbol", strings.TrimSpace(symbol))
	query.Set("apikey", c.apiKey)

	return c.get(ctx, "", query, nil)
}

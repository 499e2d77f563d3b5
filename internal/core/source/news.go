package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/marketfeed/marketfeed/internal/core"
)

const (
	// DefaultNewsBaseURL is the NewsAPI v2 root.
	DefaultNewsBaseURL = "https://newsapi.org/v2"
	// DefaultNewsQuery is used when no query is given.
	DefaultNewsQuery = "financial"
	// DefaultNewsLanguage is used when no language is given.
	DefaultNewsLanguage = "en"

	newsSortBy   = "publishedAt"
	newsPageSize = 20
)

// NewsClient searches articles through NewsAPI.
type NewsClient struct {
	client
	apiKey string
}

// NewNewsClient returns a news client. The API key is required.
func NewNewsClient(apiKey string, limiter Limiter, options ...Option) (*NewsClient, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, &ConfigurationError{Service: core.ServiceNews, Field: "news API key"}
	}
	return &NewsClient{
		client: newClient(core.ServiceNews, DefaultNewsBaseURL, limiter, options),
		apiKey: key,
	}, nil
}

// Fetch searches news for query in the default language.
func (c *NewsClient) Fetch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.GetFinancialNews(ctx, query, "")
}

// GetFinancialNews returns the newest articles matching query. An empty
// query falls back to DefaultNewsQuery and an empty language to the client
// default.
func (c *NewsClient) GetFinancialNews(ctx context.Context, query string, language string) (json.RawMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultNewsQuery
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = c.newsLanguage
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", language)
	params.Set("sortBy", newsSortBy)
	params.Set("pageSize", strconv.Itoa(newsPageSize))

	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)

	return c.get(ctx, "/everything", params, header)
}

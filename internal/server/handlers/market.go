package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marketfeed/marketfeed/internal/core"
	apperrors "github.com/marketfeed/marketfeed/internal/errors"
	"github.com/marketfeed/marketfeed/internal/metrics"
)

// symbolPattern accepts tickers such as AAPL, BRK.B, RDS-A and ^GSPC.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,14}$`)

// ComprehensiveFetcher gathers every category for a symbol.
type ComprehensiveFetcher interface {
	GetComprehensiveData(ctx context.Context, symbol string) *core.AggregationResult
}

// StockDataFetcher returns a raw time series for a symbol.
type StockDataFetcher interface {
	GetStockData(ctx context.Context, symbol string, function string) (json.RawMessage, error)
}

// NewsFetcher returns raw articles for a query.
type NewsFetcher interface {
	GetFinancialNews(ctx context.Context, query string, language string) (json.RawMessage, error)
}

// PostSearcher returns raw social posts for a query.
type PostSearcher interface {
	SearchPosts(ctx context.Context, query string, maxResults int) (json.RawMessage, error)
}

// MarketHandler serves aggregated and per-service market data.
type MarketHandler struct {
	Aggregator ComprehensiveFetcher
	Limiter    UsageReporter
	Quotes     StockDataFetcher
	News       NewsFetcher
	Social     PostSearcher
}

// RateLimitsResponse lists quota usage per service.
type RateLimitsResponse struct {
	Services  []RateLimitEntry `json:"services"`
	Timestamp time.Time        `json:"timestamp"`
}

// RateLimitEntry is one service's quota usage.
type RateLimitEntry struct {
	core.RateLimitUsage
	Remaining int `json:"remaining"`
}

// SourceResponse wraps a single service payload.
type SourceResponse struct {
	Service core.ServiceName `json:"service"`
	Query   string           `json:"query"`
	Data    json.RawMessage  `json:"data"`
}

// normalizeSymbol upper-cases the symbol and reports whether it is a valid ticker.
func normalizeSymbol(raw string) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	return symbol, symbolPattern.MatchString(symbol)
}

// Market returns the comprehensive result for {symbol}. Source failures are
// reported per category and never fail the request.
func (h *MarketHandler) Market(w http.ResponseWriter, r *http.Request) {
	symbol, ok := normalizeSymbol(chi.URLParam(r, "symbol"))
	if !ok {
		respondWithError(w, r, invalidSymbol(symbol))
		return
	}
	if h.Aggregator == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("aggregator not configured"))
		return
	}

	result := h.Aggregator.GetComprehensiveData(r.Context(), symbol)
	writeJSON(w, http.StatusOK, result)
}

// RateLimits reports current quota usage and refreshes the usage gauges.
func (h *MarketHandler) RateLimits(w http.ResponseWriter, r *http.Request) {
	if h.Limiter == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("rate limiter not configured"))
		return
	}

	usage := h.Limiter.Snapshot()
	metrics.RecordRateLimitUsage(usage)

	entries := make([]RateLimitEntry, 0, len(usage))
	for _, u := range usage {
		entries = append(entries, RateLimitEntry{RateLimitUsage: u, Remaining: u.Remaining()})
	}
	writeJSON(w, http.StatusOK, RateLimitsResponse{
		Services:  entries,
		Timestamp: time.Now().UTC(),
	})
}

// QuotesHandler returns the raw time series for {symbol}; ?function= selects the
// series.
func (h *MarketHandler) QuotesHandler(w http.ResponseWriter, r *http.Request) {
	symbol, ok := normalizeSymbol(chi.URLParam(r, "symbol"))
	if !ok {
		respondWithError(w, r, invalidSymbol(symbol))
		return
	}
	if h.Quotes == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("quotes client not configured"))
		return
	}

	payload, err := h.Quotes.GetStockData(r.Context(), symbol, r.URL.Query().Get("function"))
	if err != nil {
		respondWithSourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SourceResponse{Service: core.ServiceQuotes, Query: symbol, Data: payload})
}

// NewsHandler returns articles for ?q= (default "financial") in ?language=.
func (h *MarketHandler) NewsHandler(w http.ResponseWriter, r *http.Request) {
	if h.News == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("news client not configured"))
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	payload, err := h.News.GetFinancialNews(r.Context(), query, r.URL.Query().Get("language"))
	if err != nil {
		respondWithSourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SourceResponse{Service: core.ServiceNews, Query: query, Data: payload})
}

// SocialHandler returns recent posts for the required ?q=; ?max_results= is capped
// by the client.
func (h *MarketHandler) SocialHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("query parameter q is required"))
		return
	}

	maxResults := 0
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "max_results must be an integer"))
			return
		}
		maxResults = parsed
	}
	if h.Social == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("social client not configured"))
		return
	}

	payload, err := h.Social.SearchPosts(r.Context(), query, maxResults)
	if err != nil {
		respondWithSourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SourceResponse{Service: core.ServiceSocial, Query: query, Data: payload})
}

func invalidSymbol(symbol string) error {
	envelope := apperrors.NewInvalidInputError("invalid ticker symbol")
	envelope, _ = envelope.WithContext(map[string]interface{}{"symbol": symbol})
	return envelope
}

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/source"
)

// Source describes one external data service.
type Source interface {
	Service() core.ServiceName
	Endpoint() string
	Fetch(ctx context.Context, query string) (json.RawMessage, error)
}

// FetchObserver receives the outcome of every source call and aggregation.
type FetchObserver interface {
	ObserveFetch(category core.Category, service core.ServiceName, status core.SourceStatus, duration time.Duration)
	ObserveAggregation(present int)
}

// Aggregator collects quotes, news and social posts for a symbol. A failing
// source leaves its category absent and never aborts the others.
type Aggregator struct {
	Quotes      Source
	News        Source
	Social      Source
	Logger      *zap.Logger
	Observer    FetchObserver
	Clock       func() time.Time
	ToolVersion string

	turnOnce sync.Once
	turn     chan struct{}
}

// AggregatorOptions carries credentials and transport settings for the
// three service clients.
type AggregatorOptions struct {
	QuotesAPIKey      string
	NewsAPIKey        string
	SocialBearerToken string

	QuotesBaseURL string
	NewsBaseURL   string
	SocialBaseURL string

	QuotesFunction   string
	NewsLanguage     string
	SocialMaxResults int

	Timeout     time.Duration
	HTTPClient  source.HTTPClient
	UserAgent   string
	ToolVersion string
}

// NewAggregator builds the three service clients sharing limiter. The first
// missing credential is returned as a *source.ConfigurationError.
func NewAggregator(opts AggregatorOptions, limiter *RateLimiter, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	shared := []source.Option{
		source.WithHTTPClient(opts.HTTPClient),
		source.WithLogger(logger),
		source.WithTimeout(opts.Timeout),
		source.WithUserAgent(opts.UserAgent),
	}
	with := func(baseURL string) []source.Option {
		return append([]source.Option{source.WithBaseURL(baseURL)}, shared...)
	}

	quotes, err := source.NewQuotesClient(opts.QuotesAPIKey, limiter,
		append(with(opts.QuotesBaseURL), source.WithQuoteFunction(opts.QuotesFunction))...)
	if err != nil {
		return nil, err
	}
	news, err := source.NewNewsClient(opts.NewsAPIKey, limiter,
		append(with(opts.NewsBaseURL), source.WithNewsLanguage(opts.NewsLanguage))...)
	if err != nil {
		return nil, err
	}
	social, err := source.NewSocialClient(opts.SocialBearerToken, limiter,
		append(with(opts.SocialBaseURL), source.WithSocialMaxResults(opts.SocialMaxResults))...)
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		Quotes:      quotes,
		News:        news,
		Social:      social,
		Logger:      logger,
		ToolVersion: opts.ToolVersion,
	}, nil
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetComprehensiveData fetches quotes and news for symbol and social posts
// for its cashtag, one after another. Aggregations run one at a time; a
// caller whose ctx ends while waiting gets every category absent. The result
// always holds every category.
func (a *Aggregator) GetComprehensiveData(ctx context.Context, symbol string) *core.AggregationResult {
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := NormalizeSymbol(symbol)
	result := core.NewAggregationResult(normalized)
	if normalized == "" {
		for _, outcome := range result.Outcomes {
			outcome.Message = "symbol is required"
		}
		result.CompletedAt = a.now()
		return result
	}

	logger := a.logger().With(zap.String("symbol", normalized))

	release, err := a.acquire(ctx)
	if err != nil {
		for _, outcome := range result.Outcomes {
			outcome.Message = "aggregation cancelled: " + err.Error()
		}
		result.CompletedAt = a.now()
		logger.Warn("Aggregation cancelled while waiting", zap.Error(err))
		return result
	}
	defer release()

	logger.Info("Aggregation started")

	a.collect(ctx, logger, result.Outcomes[core.CategoryStockData], a.Quotes, normalized)
	a.collect(ctx, logger, result.Outcomes[core.CategoryNews], a.News, normalized)
	a.collect(ctx, logger, result.Outcomes[core.CategorySocialSentiment], a.Social, "$"+normalized)

	result.CompletedAt = a.now()
	present := result.PresentCount()
	if a.Observer != nil {
		a.Observer.ObserveAggregation(present)
	}
	logger.Info("Aggregation completed",
		zap.Int("present", present),
		zap.Int("categories", len(result.Outcomes)))

	return result
}

// acquire waits for the aggregation turn or for ctx to end.
func (a *Aggregator) acquire(ctx context.Context) (func(), error) {
	a.turnOnce.Do(func() {
		a.turn = make(chan struct{}, 1)
	})

	select {
	case a.turn <- struct{}{}:
		return func() { <-a.turn }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Aggregator) collect(ctx context.Context, logger *zap.Logger, outcome *core.SourceOutcome, src Source, query string) {
	if src == nil {
		now := a.now()
		outcome.Status = core.SourceStatusError
		outcome.Message = "source not configured"
		outcome.Provenance.RequestedAt = now
		outcome.Provenance.ResolvedAt = now
		return
	}

	outcome.Provenance = core.Provenance{
		CheckID:     uuid.New().String(),
		RequestedAt: a.now(),
		Service:     src.Service(),
		Server:      src.Endpoint(),
		ToolVersion: a.ToolVersion,
	}

	startedAt := time.Now()
	payload, err := src.Fetch(ctx, query)
	outcome.Provenance.ResolvedAt = a.now()
	if err != nil {
		status, statusCode := classifyFailure(err)
		a.observe(outcome.Category, src.Service(), status, time.Since(startedAt))
		outcome.Status = status
		outcome.Message = err.Error()
		outcome.Provenance.StatusCode = statusCode
		logger.Warn("Source fetch failed",
			zap.String("category", string(outcome.Category)),
			zap.String("service", string(src.Service())),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}

	a.observe(outcome.Category, src.Service(), core.SourceStatusOK, time.Since(startedAt))
	outcome.Status = core.SourceStatusOK
	outcome.Message = ""
	outcome.Payload = payload
}

func (a *Aggregator) observe(category core.Category, service core.ServiceName, status core.SourceStatus, duration time.Duration) {
	if a.Observer != nil {
		a.Observer.ObserveFetch(category, service, status, duration)
	}
}

// classifyFailure maps a client error to an outcome status and the upstream
// HTTP status, if any.
func classifyFailure(err error) (core.SourceStatus, int) {
	var failed *source.RequestFailedError
	switch {
	case errors.Is(err, source.ErrRateLimitExceeded):
		return core.SourceStatusRateLimited, 0
	case errors.As(err, &failed):
		return core.SourceStatusRequestFailed, failed.StatusCode
	default:
		return core.SourceStatusError, 0
	}
}

func (a *Aggregator) logger() *zap.Logger {
	if a != nil && a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}

func (a *Aggregator) now() time.Time {
	if a != nil && a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}

package config

import (
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/core/engine"
	"github.com/marketfeed/marketfeed/internal/core/source"
)

// NewRateLimiter returns a limiter with the configured quotas and safety
// margin applied over the defaults.
func (c *Config) NewRateLimiter() *engine.RateLimiter {
	limiter := engine.NewRateLimiter()
	limiter.ApplyOverrides(c.Quotas())
	limiter.ApplySafetyMargin(c.RateLimitMargin)
	return limiter
}

// AggregatorOptions maps source and HTTP settings onto aggregator options.
func (c *Config) AggregatorOptions(toolVersion string) engine.AggregatorOptions {
	return engine.AggregatorOptions{
		QuotesAPIKey:      c.Sources.Quotes.APIKey,
		NewsAPIKey:        c.Sources.News.APIKey,
		SocialBearerToken: c.Sources.Social.BearerToken,
		QuotesBaseURL:     c.Sources.Quotes.BaseURL,
		NewsBaseURL:       c.Sources.News.BaseURL,
		SocialBaseURL:     c.Sources.Social.BaseURL,
		QuotesFunction:    c.Sources.Quotes.Function,
		NewsLanguage:      c.Sources.News.Language,
		SocialMaxResults:  c.Sources.Social.MaxResults,
		Timeout:           c.HTTP.Timeout,
		UserAgent:         c.userAgent(toolVersion),
		ToolVersion:       toolVersion,
	}
}

// userAgent prefers the configured value, then AppName/toolVersion.
func (c *Config) userAgent(toolVersion string) string {
	if c.HTTP.UserAgent != "" || toolVersion == "" {
		return c.HTTP.UserAgent
	}
	return AppName + "/" + toolVersion
}

// NewAggregator builds the limiter and the three service clients. A missing
// credential is returned as a *source.ConfigurationError.
func (c *Config) NewAggregator(toolVersion string, logger *zap.Logger) (*engine.Aggregator, *engine.RateLimiter, error) {
	limiter := c.NewRateLimiter()
	agg, err := engine.NewAggregator(c.AggregatorOptions(toolVersion), limiter, logger)
	if err != nil {
		return nil, nil, err
	}
	return agg, limiter, nil
}

// NewQuotesClient builds a standalone quotes client; only its own credential
// is required.
func (c *Config) NewQuotesClient(toolVersion string, limiter source.Limiter, logger *zap.Logger) (*source.QuotesClient, error) {
	options := append(c.clientOptions(c.Sources.Quotes.BaseURL, toolVersion, logger),
		source.WithQuoteFunction(c.Sources.Quotes.Function))
	return source.NewQuotesClient(c.Sources.Quotes.APIKey, limiter, options...)
}

// NewNewsClient builds a standalone news client.
func (c *Config) NewNewsClient(toolVersion string, limiter source.Limiter, logger *zap.Logger) (*source.NewsClient, error) {
	options := append(c.clientOptions(c.Sources.News.BaseURL, toolVersion, logger),
		source.WithNewsLanguage(c.Sources.News.Language))
	return source.NewNewsClient(c.Sources.News.APIKey, limiter, options...)
}

// NewSocialClient builds a standalone social client.
func (c *Config) NewSocialClient(toolVersion string, limiter source.Limiter, logger *zap.Logger) (*source.SocialClient, error) {
	options := append(c.clientOptions(c.Sources.Social.BaseURL, toolVersion, logger),
		source.WithSocialMaxResults(c.Sources.Social.MaxResults))
	return source.NewSocialClient(c.Sources.Social.BearerToken, limiter, options...)
}

func (c *Config) clientOptions(baseURL, toolVersion string, logger *zap.Logger) []source.Option {
	return []source.Option{
		source.WithBaseURL(baseURL),
		source.WithLogger(logger),
		source.WithTimeout(c.HTTP.Timeout),
		source.WithUserAgent(c.userAgent(toolVersion)),
	}
}

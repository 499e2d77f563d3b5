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
	// DefaultSocialBaseURL is the X (Twitter) API v2 root.
	DefaultSocialBaseURL = "https://api.twitter.com/2"
	// DefaultSocialMaxResults is used when no result count is given.
	DefaultSocialMaxResults = 10
	// MaxSocialResults is the upper bound accepted by recent search.
	MaxSocialResults = 100

	socialPostFields = "created_at,public_metrics,context_annotations"
)

// SocialClient searches recent posts through the X API.
type SocialClient struct {
	client
	bearerToken string
}

// NewSocialClient returns a social client. The bearer token is required.
func NewSocialClient(bearerToken string, limiter Limiter, options ...Option) (*SocialClient, error) {
	token := strings.TrimSpace(bearerToken)
	if token == "" {
		return nil, &ConfigurationError{Service: core.ServiceSocial, Field: "social bearer token"}
	}
	return &SocialClient{
		client:      newClient(core.ServiceSocial, DefaultSocialBaseURL, limiter, options),
		bearerToken: token,
	}, nil
}

// Fetch searches recent posts for query with the default result count.
func (c *SocialClient) Fetch(ctx context.Context, query string) (json.RawMessage, error) {
	return c.SearchPosts(ctx, query, 0)
}

// SearchPosts returns recent posts matching query. maxResults is capped at
// MaxSocialResults; non-positive values use the client default.
func (c *SocialClient) SearchPosts(ctx context.Context, query string, maxResults int) (json.RawMessage, error) {
	if maxResults <= 0 {
		maxResults = c.socialMaxResults
	}
	params := url.Values{}
	params.Set("query", strings.TrimSpace(query))
	params.Set("max_results", strconv.Itoa(ClampMaxResults(maxResults)))
	params.Set("tweet.fields", socialPostFields)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.bearerToken)

	return c.get(ctx, "/tweets/search/recent", params, header)
}

// ClampMaxResults applies the default and the upper bound to a requested
// result count.
func ClampMaxResults(requested int) int {
	switch {
	case requested <= 0:
		return DefaultSocialMaxResults
	case requested > MaxSocialResults:
		return MaxSocialResults
	default:
		return requested
	}
}

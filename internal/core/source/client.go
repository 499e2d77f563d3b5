package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/core"
)

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 30 * time.Second

const defaultUserAgent = "marketfeed/dev"

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 512

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=source -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Limiter is the cooperative quota check used before and after each call.
type Limiter interface {
	CanMakeRequest(service core.ServiceName) bool
	RecordRequest(service core.ServiceName)
}

// Reserver is implemented by limiters that hold a quota slot while a request
// is in flight. Clients prefer it over the two-step Limiter calls.
type Reserver interface {
	Reserve(service core.ServiceName) bool
	Commit(service core.ServiceName)
	Release(service core.ServiceName)
}

// Option configures a service client.
type Option func(*client)

// WithBaseURL overrides the service base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *client) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithQuoteFunction sets the time series function used when a quotes call
// names none.
func WithQuoteFunction(function string) Option {
	return func(c *client) {
		if trimmed := strings.TrimSpace(function); trimmed != "" {
			c.quoteFunction = trimmed
		}
	}
}

// WithNewsLanguage sets the article language used when a news call names
// none.
func WithNewsLanguage(language string) Option {
	return func(c *client) {
		if trimmed := strings.TrimSpace(language); trimmed != "" {
			c.newsLanguage = trimmed
		}
	}
}

// WithSocialMaxResults sets the result count used when a social call asks
// for none. The value is clamped like any requested count.
func WithSocialMaxResults(maxResults int) Option {
	return func(c *client) {
		if maxResults > 0 {
			c.socialMaxResults = ClampMaxResults(maxResults)
		}
	}
}

// client holds the request plumbing shared by every service client.
type client struct {
	service    core.ServiceName
	baseURL    string
	httpClient HTTPClient
	limiter    Limiter
	logger     *zap.Logger
	timeout    time.Duration
	userAgent  string

	quoteFunction    string
	newsLanguage     string
	socialMaxResults int
}

func newClient(service core.ServiceName, baseURL string, limiter Limiter, options []Option) client {
	c := client{
		service:   service,
		baseURL:   baseURL,
		limiter:   limiter,
		logger:    zap.NewNop(),
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,

		quoteFunction:    DefaultQuoteFunction,
		newsLanguage:     DefaultNewsLanguage,
		socialMaxResults: DefaultSocialMaxResults,
	}
	for _, option := range options {
		option(&c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.logger = c.logger.With(zap.String("service", string(service)))
	return c
}

// Service returns the service name used as the quota key.
func (c *client) Service() core.ServiceName {
	return c.service
}

// Endpoint returns the configured base URL.
func (c *client) Endpoint() string {
	return c.baseURL
}

// get performs a quota-checked GET and returns the raw JSON body. Only
// successful responses are recorded against the quota; the reserved slot is
// released on every other path.
func (c *client) get(ctx context.Context, path string, query url.Values, header http.Header) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !c.admit() {
		c.logger.Warn("Rate limit exceeded, request skipped")
		return nil, &RateLimitExceededError{Service: c.service}
	}
	settled := false
	defer func() {
		if !settled {
			c.release()
		}
	}()

	endpoint := strings.TrimRight(c.baseURL, "/") + path
	reqURL := endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &RequestFailedError{Service: c.service, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	c.logger.Debug("Requesting", zap.String("endpoint", endpoint))
	startedAt := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactError(err, query)
		c.logger.Error("Request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &RequestFailedError{Service: c.service, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail := readErrorBody(resp.Body)
		c.logger.Error("Unexpected response status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", detail))
		return nil, &RequestFailedError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.StatusCode, detail),
		}
	}

	c.commit()
	settled = true

	var payload json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error("Response is not JSON", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &RequestFailedError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}

	c.logger.Info("Request succeeded",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
		zap.Duration("duration", time.Since(startedAt)))

	return payload, nil
}

func (c *client) admit() bool {
	switch limiter := c.limiter.(type) {
	case nil:
		return true
	case Reserver:
		return limiter.Reserve(c.service)
	default:
		return limiter.CanMakeRequest(c.service)
	}
}

func (c *client) commit() {
	switch limiter := c.limiter.(type) {
	case nil:
	case Reserver:
		limiter.Commit(c.service)
	default:
		limiter.RecordRequest(c.service)
	}
}

func (c *client) release() {
	if reserver, ok := c.limiter.(Reserver); ok {
		reserver.Release(c.service)
	}
}

func statusError(statusCode int, detail string) error {
	text := http.StatusText(statusCode)
	if text == "" {
		text = "unexpected status"
	}
	if detail == "" {
		return fmt.Errorf("%d %s", statusCode, text)
	}
	return fmt.Errorf("%d %s: %s", statusCode, text, detail)
}

func readErrorBody(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// redactError strips credential query values from transport errors, which
// embed the full request URL.
func redactError(err error, query url.Values) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	redacted := message
	for _, key := range []string{"apikey", "api_key", "token"} {
		if value := query.Get(key); value != "" {
			redacted = strings.ReplaceAll(redacted, value, "REDACTED")
		}
	}
	if redacted == message {
		return err
	}
	return &redactedError{message: redacted, err: err}
}

type redactedError struct {
	message string
	err     error
}

func (e *redactedError) Error() string { return e.message }

func (e *redactedError) Unwrap() error { return e.err }

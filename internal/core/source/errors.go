package source

import (
	"errors"
	"fmt"

	"github.com/marketfeed/marketfeed/internal/core"
)

var (
	// ErrMissingCredential marks a client constructed without its credential.
	ErrMissingCredential = errors.New("missing credential")
	// ErrRateLimitExceeded marks a request rejected by the local quota.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrRequestFailed marks a transport error or a non-2xx response.
	ErrRequestFailed = errors.New("request failed")
)

// ConfigurationError reports a credential that is required at construction.
type ConfigurationError struct {
	Service core.ServiceName
	Field   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s client: %s is not configured", e.Service, e.Field)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrMissingCredential
}

// RateLimitExceededError is returned before any network call when the
// service quota is exhausted.
type RateLimitExceededError struct {
	Service core.ServiceName
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Service)
}

func (e *RateLimitExceededError) Unwrap() error {
	return ErrRateLimitExceeded
}

// RequestFailedError wraps a transport failure or an unexpected HTTP status.
// StatusCode is zero when no response was received.
type RequestFailedError struct {
	Service    core.ServiceName
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *RequestFailedError) Unwrap() []error {
	return []error{ErrRequestFailed, e.Err}
}

// IsConfigurationError reports whether err is a missing-credential error.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

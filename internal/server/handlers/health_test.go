package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketfeed/marketfeed/internal/core"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

type stubUsage []core.RateLimitUsage

func (s stubUsage) Snapshot() []core.RateLimitUsage { return s }

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{err: nil})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Checks["ok"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("upstream", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)

	checks, ok := resp.Error.Details["checks"].(map[string]interface{})
	require.True(t, ok, "expected checks in error details")
	assert.Equal(t, StatusUnhealthy, checks["upstream"])
}

func TestHealthHandlerReportsDegradedWithOK(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("rate_limiter", stubChecker{err: fmt.Errorf("%w: quota", ErrDegraded)})

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProbeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestLivenessIgnoresComponentChecks(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("upstream", stubChecker{err: errors.New("down")})

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	manager := NewHealthManager("dev")

	assert.Equal(t, StatusDegraded, manager.determineOverallStatus(map[string]string{"upstream": StatusTimeout}))
	assert.Equal(t, StatusUnhealthy, manager.determineOverallStatus(map[string]string{
		"a": StatusTimeout,
		"b": StatusUnhealthy,
	}))
}

func TestRateLimitChecker(t *testing.T) {
	healthy := RateLimitChecker(stubUsage{
		{Service: core.ServiceQuotes, Used: 10, Limit: 500},
	})
	assert.NoError(t, healthy.CheckHealth(context.Background()))

	exhausted := RateLimitChecker(stubUsage{
		{Service: core.ServiceQuotes, Used: 1, Limit: 500},
		{Service: core.ServiceSocial, Used: 300, Limit: 300},
	})
	err := exhausted.CheckHealth(context.Background())
	require.ErrorIs(t, err, ErrDegraded)
	assert.Contains(t, err.Error(), "social")

	assert.Error(t, RateLimitChecker(nil).CheckHealth(context.Background()))
}

func TestTelemetryChecker(t *testing.T) {
	assert.NoError(t, TelemetryChecker(false, nil).CheckHealth(context.Background()))
	assert.NoError(t, TelemetryChecker(true, func() bool { return true }).CheckHealth(context.Background()))
	assert.ErrorIs(t, TelemetryChecker(true, func() bool { return false }).CheckHealth(context.Background()), ErrDegraded)
}

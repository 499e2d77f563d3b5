package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: collector,
	})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	return collector
}

func TestSourceObserverEmitsMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	observer := SourceObserver{}
	observer.ObserveFetch(core.CategoryStockData, core.ServiceQuotes, core.SourceStatusOK, 25*time.Millisecond)
	observer.ObserveFetch(core.CategoryNews, core.ServiceNews, core.SourceStatusRateLimited, time.Millisecond)
	observer.ObserveAggregation(1)

	assert.Greater(t, collector.CountMetricsByName(SourceFetchesTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(SourceFetchDuration), 0)
	assert.Greater(t, collector.CountMetricsByName(AggregationsTotal), 0)
}

func TestRecordRateLimitUsage(t *testing.T) {
	collector := setupTelemetry(t)

	RecordRateLimitUsage([]core.RateLimitUsage{
		{Service: core.ServiceQuotes, Used: 3, Limit: 25, Period: core.PeriodDay},
		{Service: "custom", Used: 7, Unbounded: true},
	})

	assert.Greater(t, collector.CountMetricsByName(RateLimitUsedRequests), 0)
	assert.Greater(t, collector.CountMetricsByName(RateLimitLimitRequests), 0)
}

func TestRecordErrors(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("/v1/quotes/{symbol}", "RATE_LIMITED")
	RecordPanic()

	assert.Greater(t, collector.CountMetricsByName(ErrorsTotalName), 0)
	assert.Greater(t, collector.CountMetricsByName(ErrorsByEndpointName), 0)
	assert.Greater(t, collector.CountMetricsByName(PanicsTotalName), 0)
}

func TestRecordersSkipWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	require.NotPanics(t, func() {
		observer := SourceObserver{}
		observer.ObserveFetch(core.CategoryNews, core.ServiceNews, core.SourceStatusOK, time.Millisecond)
		observer.ObserveAggregation(3)
		RecordRateLimitUsage([]core.RateLimitUsage{{Service: core.ServiceQuotes, Used: 1, Limit: 25}})
		RecordError("NOT_FOUND", 404)
		RecordPanic()
		SetServerStartTime(time.Now().Unix())
	})
}

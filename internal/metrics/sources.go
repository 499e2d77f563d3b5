package metrics

import (
	"strconv"
	"time"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/observability"
)

// Source and aggregation metrics following Prometheus conventions
const (
	SourceFetchesTotal     = "source_fetches_total"
	SourceFetchDuration    = "source_fetch_duration_ms"
	AggregationsTotal      = "aggregations_total"
	RateLimitUsedRequests  = "rate_limit_used_requests"
	RateLimitLimitRequests = "rate_limit_limit_requests"
	ServerStartTime        = "app_server_start_time_seconds"
)

// SourceObserver forwards aggregator fetch outcomes to the telemetry system.
type SourceObserver struct{}

// ObserveFetch records one source call.
func (SourceObserver) ObserveFetch(category core.Category, service core.ServiceName, status core.SourceStatus, duration time.Duration) {
	RecordSourceFetch(category, service, status, duration)
}

// ObserveAggregation records a completed aggregation.
func (SourceObserver) ObserveAggregation(present int) {
	RecordAggregation(present)
}

// RecordSourceFetch counts a source call by outcome and records its latency.
func RecordSourceFetch(category core.Category, service core.ServiceName, status core.SourceStatus, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		SourceFetchesTotal,
		1,
		map[string]string{
			"category": string(category),
			"service":  string(service),
			"status":   string(status),
		},
	)

	_ = observability.TelemetrySystem.Histogram(
		SourceFetchDuration,
		duration,
		map[string]string{
			"service": string(service),
		},
	)
}

// RecordAggregation counts aggregations by how many categories were filled.
func RecordAggregation(present int) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		AggregationsTotal,
		1,
		map[string]string{
			"present": strconv.Itoa(present),
		},
	)
}

// RecordRateLimitUsage publishes the current window usage per service.
func RecordRateLimitUsage(usage []core.RateLimitUsage) {
	if observability.TelemetrySystem == nil {
		return
	}

	for _, entry := range usage {
		labels := map[string]string{"service": string(entry.Service)}
		_ = observability.TelemetrySystem.Gauge(RateLimitUsedRequests, float64(entry.Used), labels)
		if !entry.Unbounded {
			_ = observability.TelemetrySystem.Gauge(RateLimitLimitRequests, float64(entry.Limit), labels)
		}
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/marketfeed/marketfeed/internal/core"
)

// RateLimiter tracks accepted requests per service and decides whether a new
// request fits the service quota.
//
// Callers reserve a slot with Reserve, perform the request, and then either
// Commit the slot when the request succeeded or Release it. Reserved slots
// count against the quota until they are settled, so concurrent callers
// cannot overshoot the limit. CanMakeRequest and RecordRequest remain for
// callers that check and record in two steps.
type RateLimiter struct {
	// Clock is read without locking; set it before the limiter is shared.
	Clock func() time.Time

	mu      sync.Mutex
	limits  map[core.ServiceName]core.Quota
	margin  float64
	logs    map[core.ServiceName][]time.Time
	pending map[core.ServiceName]int
}

// DefaultQuotas matches the published free-tier limits of each provider.
var DefaultQuotas = map[core.ServiceName]core.Quota{
	core.ServiceQuotes: {RequestsPerWindow: 25, Period: core.PeriodDay},
	core.ServiceNews:   {RequestsPerWindow: 1000, Period: core.PeriodDay},
	core.ServiceSocial: {RequestsPerWindow: 300, Period: core.PeriodFifteenMinutes},
}

// NewRateLimiter returns a limiter seeded with DefaultQuotas.
func NewRateLimiter() *RateLimiter {
	limits := make(map[core.ServiceName]core.Quota, len(DefaultQuotas))
	for service, quota := range DefaultQuotas {
		limits[service] = quota
	}
	return &RateLimiter{limits: limits}
}

// CanMakeRequest prunes the service log to the quota window and reports
// whether another request is admissible. Services without a quota are
// unbounded.
func (r *RateLimiter) CanMakeRequest(service core.ServiceName) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	quota, ok := r.limitLocked(service)
	if !ok {
		return true
	}

	return r.prune(service, quota)+r.pending[service] < quota.RequestsPerWindow
}

// RecordRequest appends the current time to the service log. Requests to
// services without a quota are not logged.
func (r *RateLimiter) RecordRequest(service core.ServiceName) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.recordLocked(service)
}

// Reserve admits a request and holds its slot until Commit or Release.
// It reports false when the retained and reserved requests already fill the
// window.
func (r *RateLimiter) Reserve(service core.ServiceName) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	quota, ok := r.limitLocked(service)
	if !ok {
		return true
	}
	if r.prune(service, quota)+r.pending[service] >= quota.RequestsPerWindow {
		return false
	}

	if r.pending == nil {
		r.pending = make(map[core.ServiceName]int)
	}
	r.pending[service]++
	return true
}

// Commit turns a reserved slot into a logged request.
func (r *RateLimiter) Commit(service core.ServiceName) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settleLocked(service)
	r.recordLocked(service)
}

// Release returns a reserved slot without logging a request.
func (r *RateLimiter) Release(service core.ServiceName) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settleLocked(service)
}

// ApplyOverrides merges per-service quota overrides. Entries with a
// non-positive request count are ignored.
func (r *RateLimiter) ApplyOverrides(overrides map[core.ServiceName]core.Quota) {
	if r == nil || len(overrides) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limits == nil {
		r.limits = make(map[core.ServiceName]core.Quota, len(DefaultQuotas))
		for service, quota := range DefaultQuotas {
			r.limits[service] = quota
		}
	}

	for service, quota := range overrides {
		if service == "" || quota.RequestsPerWindow <= 0 {
			continue
		}
		r.limits[service] = quota
	}
}

// ApplySafetyMargin adjusts the effective request limits by a ratio (0-1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil {
		return
	}
	if margin <= 0 || margin > 1 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.margin = margin
}

// Quota returns the configured quota for service before the safety margin
// is applied.
func (r *RateLimiter) Quota(service core.ServiceName) (core.Quota, bool) {
	if r == nil {
		return core.Quota{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	quota, ok := r.limits[service]
	return quota, ok
}

// SafetyMargin returns the ratio applied to every quota, or 0 when unset.
func (r *RateLimiter) SafetyMargin() float64 {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.margin
}

// Snapshot reports usage for every configured service and every service with
// logged or reserved requests, sorted by service name. Stale entries are
// pruned first.
func (r *RateLimiter) Snapshot() []core.RateLimitUsage {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[core.ServiceName]struct{})
	for service := range r.limits {
		names[service] = struct{}{}
	}
	for service := range r.logs {
		names[service] = struct{}{}
	}
	for service := range r.pending {
		names[service] = struct{}{}
	}

	usage := make([]core.RateLimitUsage, 0, len(names))
	for service := range names {
		quota, ok := r.limitLocked(service)
		if !ok {
			usage = append(usage, core.RateLimitUsage{
				Service:   service,
				Unbounded: true,
			})
			continue
		}

		used := r.prune(service, quota)
		entry := core.RateLimitUsage{
			Service:  service,
			Used:     used,
			InFlight: r.pending[service],
			Limit:    quota.RequestsPerWindow,
			Period:   quota.Period,
			Window:   quota.Period.Window(),
		}
		if used > 0 {
			oldest := r.logs[service][0]
			entry.Oldest = &oldest
		}
		usage = append(usage, entry)
	}

	sort.Slice(usage, func(i, j int) bool { return usage[i].Service < usage[j].Service })
	return usage
}

// prune drops timestamps at or before the window cutoff and returns the
// retained count. Callers hold r.mu.
func (r *RateLimiter) prune(service core.ServiceName, quota core.Quota) int {
	entries := r.logs[service]
	if len(entries) == 0 {
		return 0
	}

	cutoff := r.now().Add(-quota.Period.Window())
	retained := entries[:0]
	for _, at := range entries {
		if at.After(cutoff) {
			retained = append(retained, at)
		}
	}
	r.logs[service] = retained
	return len(retained)
}

// recordLocked logs a request for a bounded service. Callers hold r.mu.
func (r *RateLimiter) recordLocked(service core.ServiceName) {
	if _, ok := r.limitLocked(service); !ok {
		return
	}
	if r.logs == nil {
		r.logs = make(map[core.ServiceName][]time.Time)
	}
	r.logs[service] = append(r.logs[service], r.now())
}

// settleLocked drops one reserved slot. Callers hold r.mu.
func (r *RateLimiter) settleLocked(service core.ServiceName) {
	switch count := r.pending[service]; {
	case count > 1:
		r.pending[service] = count - 1
	case count == 1:
		delete(r.pending, service)
	}
}

func (r *RateLimiter) limitLocked(service core.ServiceName) (core.Quota, bool) {
	quota, ok := r.limits[service]
	if !ok || quota.RequestsPerWindow <= 0 {
		return core.Quota{}, false
	}
	return r.applyMargin(quota), true
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *RateLimiter) applyMargin(quota core.Quota) core.Quota {
	if r == nil || r.margin <= 0 || r.margin > 1 {
		return quota
	}
	adjusted := int(math.Floor(float64(quota.RequestsPerWindow) * r.margin))
	if adjusted < 1 {
		adjusted = 1
	}
	quota.RequestsPerWindow = adjusted
	return quota
}

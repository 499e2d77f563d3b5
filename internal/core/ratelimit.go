package core

import (
	"strings"
	"time"
)

// Period names the window a quota is evaluated over.
type Period string

const (
	PeriodDay            Period = "day"
	PeriodFifteenMinutes Period = "15_minutes"
	PeriodHour           Period = "hour"
)

// ParsePeriod normalizes a configured period name. Unknown names are kept
// as-is and fall back to an hourly window.
func ParsePeriod(value string) Period {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "day", "daily", "24h":
		return PeriodDay
	case "15_minutes", "15m", "fifteen_minutes":
		return PeriodFifteenMinutes
	case "hour", "hourly", "1h":
		return PeriodHour
	default:
		return Period(normalized)
	}
}

// Window returns the lookback duration for the period.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodFifteenMinutes:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// Quota is the maximum request count allowed within a sliding window.
type Quota struct {
	RequestsPerWindow int    `json:"requests" mapstructure:"requests"`
	Period            Period `json:"period" mapstructure:"period"`
}

// RateLimitUsage reports the current usage of a service quota.
type RateLimitUsage struct {
	Service   ServiceName   `json:"service"`
	Used      int           `json:"used"`
	InFlight  int           `json:"in_flight,omitempty"`
	Limit     int           `json:"limit"`
	Period    Period        `json:"period"`
	Window    time.Duration `json:"window"`
	Oldest    *time.Time    `json:"oldest,omitempty"`
	Unbounded bool          `json:"unbounded,omitempty"`
}

// Remaining returns how many requests are still admissible in the window.
func (u RateLimitUsage) Remaining() int {
	if u.Unbounded {
		return -1
	}
	taken := u.Used + u.InFlight
	if taken >= u.Limit {
		return 0
	}
	return u.Limit - taken
}

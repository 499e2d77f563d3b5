package config

import (
	"time"

	"github.com/marketfeed/marketfeed/internal/core"
)

// Config represents the complete application configuration. Values come from
// defaults, an optional YAML file, a .env file and environment variables, in
// increasing order of precedence.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Debug       bool          `mapstructure:"debug"`
	Sources     SourcesConfig `mapstructure:"sources"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Server      ServerConfig  `mapstructure:"server"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Admin       AdminConfig   `mapstructure:"admin"`

	RateLimits      map[string]core.Quota `mapstructure:"rate_limits"`
	RateLimitMargin float64               `mapstructure:"rate_limit_margin"`
}

// SourcesConfig holds credentials and endpoints of the external services.
type SourcesConfig struct {
	Quotes QuotesConfig `mapstructure:"quotes"`
	News   NewsConfig   `mapstructure:"news"`
	Social SocialConfig `mapstructure:"social"`
}

// QuotesConfig configures the Alpha Vantage client.
type QuotesConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Function string `mapstructure:"function"`
}

// NewsConfig configures the NewsAPI client.
type NewsConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
}

// SocialConfig configures the recent-search client.
type SocialConfig struct {
	BearerToken string `mapstructure:"bearer_token"`
	BaseURL     string `mapstructure:"base_url"`
	MaxResults  int    `mapstructure:"max_results"`
}

// HTTPConfig contains outbound request settings shared by all clients.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the encoder; empty picks simple for the CLI and
	// structured for serve.
	// Valid values: simple (console), structured (JSON)
	Profile string `mapstructure:"profile"`

	// File enables a rotating file sink when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MetricsConfig controls the Prometheus exporter started by serve.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
}

// AdminConfig enables POST /admin/signal when Token is set.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// Quotas converts the configured rate limits into per-service quotas.
func (c *Config) Quotas() map[core.ServiceName]core.Quota {
	if c == nil || len(c.RateLimits) == 0 {
		return nil
	}
	quotas := make(map[core.ServiceName]core.Quota, len(c.RateLimits))
	for name, quota := range c.RateLimits {
		quotas[core.ServiceName(name)] = quota
	}
	return quotas
}

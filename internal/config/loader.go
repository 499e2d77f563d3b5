// Package config loads marketfeed configuration through viper. Defaults are
// registered first, then an optional YAML file, a .env file and environment
// variables override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/engine"
	"github.com/marketfeed/marketfeed/internal/core/source"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. MARKETFEED_SERVER_PORT.
const EnvPrefix = "MARKETFEED"

// AppName names the config directory and file.
const AppName = "marketfeed"

// DefaultDotEnvFile is read when LoadDotEnv gets no paths.
const DefaultDotEnvFile = ".env"

// legacyEnv maps config keys to the bare variable names used by existing
// deployments.
var legacyEnv = map[string]string{
	"sources.quotes.api_key":      "ALPHA_VANTAGE_API_KEY",
	"sources.news.api_key":        "NEWS_API_KEY",
	"sources.social.bearer_token": "TWITTER_BEARER_TOKEN",
	"environment":                 "ENVIRONMENT",
	"debug":                       "DEBUG",
}

// SetDefaults registers default configuration values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	// Source defaults
	v.SetDefault("sources.quotes.api_key", "")
	v.SetDefault("sources.quotes.base_url", source.DefaultQuotesBaseURL)
	v.SetDefault("sources.quotes.function", source.DefaultQuoteFunction)
	v.SetDefault("sources.news.api_key", "")
	v.SetDefault("sources.news.base_url", source.DefaultNewsBaseURL)
	v.SetDefault("sources.news.language", source.DefaultNewsLanguage)
	v.SetDefault("sources.social.bearer_token", "")
	v.SetDefault("sources.social.base_url", source.DefaultSocialBaseURL)
	v.SetDefault("sources.social.max_results", source.DefaultSocialMaxResults)

	// Outbound HTTP defaults
	v.SetDefault("http.timeout", source.DefaultTimeout.String())
	v.SetDefault("http.user_agent", "")

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.namespace", AppName)

	v.SetDefault("admin.token", "")

	// Rate limits
	for service, quota := range engine.DefaultQuotas {
		v.SetDefault("rate_limits."+string(service)+".requests", quota.RequestsPerWindow)
		v.SetDefault("rate_limits."+string(service)+".period", string(quota.Period))
	}
	v.SetDefault("rate_limit_margin", 1.0)
}

// AddConfigPaths points v at an explicit file, or at config.yaml in the XDG
// config directory and ./config.
func AddConfigPaths(v *viper.Viper, file string) {
	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
		return
	}
	if dir := ConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// ConfigDir returns the per-user config directory, or "" when it cannot be
// resolved.
func ConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// ReadConfigFile reads the configured file. A missing file is not an error
// unless it was named explicitly; the returned path is empty when none was
// read.
func ReadConfigFile(v *viper.Viper) (string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// BindEnv enables MARKETFEED_* variables for every key and the bare
// credential names for the source keys.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// LoadDotEnv reads KEY=value pairs into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultDotEnvFile}
	}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load decodes the viper settings into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("viper instance is required")
	}

	cfg := &Config{}
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToFloat64HookFunc(),
		stringToPeriodHookFunc(),
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once. Missing credentials are not
// checked here; the service clients reject them at construction.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http.timeout must not be negative"))
	}
	if c.RateLimitMargin < 0 || c.RateLimitMargin > 1 {
		errs = append(errs, fmt.Errorf("rate_limit_margin %.2f must be within [0, 1]", c.RateLimitMargin))
	}
	for name, quota := range c.RateLimits {
		if quota.RequestsPerWindow < 0 {
			errs = append(errs, fmt.Errorf("rate_limits.%s.requests must not be negative", name))
		}
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}
	if c.Sources.Social.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("sources.social.max_results must not be negative"))
	}

	return errors.Join(errs...)
}

var periodType = reflect.TypeOf(core.Period(""))

func stringToPeriodHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != periodType {
			return data, nil
		}
		return core.ParsePeriod(reflect.ValueOf(data).String()), nil
	}
}

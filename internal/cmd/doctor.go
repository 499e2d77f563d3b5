package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/config"
	"github.com/marketfeed/marketfeed/internal/core"
)

// credentialCheck names one service credential and its environment variable.
type credentialCheck struct {
	Service core.ServiceName
	EnvVar  string
	Value   string
}

func credentialChecks(cfg *config.Config) []credentialCheck {
	return []credentialCheck{
		{Service: core.ServiceQuotes, EnvVar: "ALPHA_VANTAGE_API_KEY", Value: cfg.Sources.Quotes.APIKey},
		{Service: core.ServiceNews, EnvVar: "NEWS_API_KEY", Value: cfg.Sources.News.APIKey},
		{Service: core.ServiceSocial, EnvVar: "TWITTER_BEARER_TOKEN", Value: cfg.Sources.Social.BearerToken},
	}
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and configuration and suggest fixes for common issues.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cliLogger()
		checks := credentialChecks(appConfig)
		totalChecks := 3 + len(checks)
		allChecks := true

		logger.Info("=== " + config.AppName + " doctor ===")
		logger.Info("Running diagnostic checks...")

		goVersion := runtime.Version()
		logger.Info(fmt.Sprintf("[1/%d] Checking Go runtime... ✅ %s %s/%s", totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		version := crucible.GetVersion()
		if version.Gofulmen != "" && version.Crucible != "" {
			logger.Info(fmt.Sprintf("[2/%d] Checking Gofulmen/Crucible... ✅ v%s / v%s", totalChecks, version.Gofulmen, version.Crucible))
		} else {
			logger.Warn(fmt.Sprintf("[2/%d] Checking Gofulmen/Crucible... ⚠️  version metadata unavailable", totalChecks))
			allChecks = false
		}

		configDir := config.ConfigDir()
		switch {
		case configFileUsed != "":
			logger.Info(fmt.Sprintf("[3/%d] Checking config file... ✅ %s", totalChecks, configFileUsed))
		case configDir != "":
			logger.Info(fmt.Sprintf("[3/%d] Checking config file... ✅ none (defaults; run '%s doctor init' to create %s)",
				totalChecks, config.AppName, filepath.Join(configDir, "config.yaml")))
		default:
			logger.Warn(fmt.Sprintf("[3/%d] Checking config file... ⚠️  config directory not resolved", totalChecks))
			allChecks = false
		}

		for i, check := range checks {
			label := fmt.Sprintf("[%d/%d] Checking %s credential...", 4+i, totalChecks, check.Service)
			if strings.TrimSpace(check.Value) != "" {
				logger.Info(label + " ✅ configured")
				continue
			}
			logger.Warn(fmt.Sprintf("%s ⚠️  missing (set %s)", label, check.EnvVar))
			allChecks = false
		}

		summary := []string{"Effective Rate Limits", ""}
		for _, usage := range appConfig.NewRateLimiter().Snapshot() {
			if usage.Unbounded {
				summary = append(summary, fmt.Sprintf("%s: unbounded", usage.Service))
				continue
			}
			summary = append(summary, fmt.Sprintf("%s: %d per %s", usage.Service, usage.Limit, usage.Period))
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(summary, "\n"), 0))

		if allChecks {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		return nil
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the user config directory",
	Long: `Write a default config file. Credentials are not written; keep them in the
environment or a .env file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := config.ConfigDir()
		if dir == "" {
			return fmt.Errorf("config directory not resolved")
		}
		configPath := filepath.Join(dir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		cliLogger().Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration paths and effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg := appConfig

		_, _ = fmt.Fprintln(out, "Configuration:")
		_, _ = fmt.Fprintf(out, "  Config directory: %s\n", valueOr(config.ConfigDir(), "(not resolved)"))
		_, _ = fmt.Fprintf(out, "  Config file:      %s\n", valueOr(configFileUsed, "(none)"))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Credentials:")
		for _, check := range credentialChecks(cfg) {
			_, _ = fmt.Fprintf(out, "  %-7s %s\n", check.Service+":", credentialStatus(check.Value))
		}
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Effective Settings:")
		_, _ = fmt.Fprintf(out, "  sources.quotes.base_url: %s\n", cfg.Sources.Quotes.BaseURL)
		_, _ = fmt.Fprintf(out, "  sources.news.base_url:   %s\n", cfg.Sources.News.BaseURL)
		_, _ = fmt.Fprintf(out, "  sources.social.base_url: %s\n", cfg.Sources.Social.BaseURL)
		_, _ = fmt.Fprintf(out, "  http.timeout:            %s\n", cfg.HTTP.Timeout)
		_, _ = fmt.Fprintf(out, "  rate_limit_margin:       %g\n", cfg.RateLimitMargin)
		_, _ = fmt.Fprintf(out, "  server:                  %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		_, _ = fmt.Fprintf(out, "  metrics.enabled:         %t (port %d)\n", cfg.Metrics.Enabled, cfg.Metrics.Port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
}

// credentialStatus never prints more than the last four characters.
func credentialStatus(value string) string {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return "missing"
	case len(trimmed) <= 8:
		return "set"
	default:
		return "set (…" + trimmed[len(trimmed)-4:] + ")"
	}
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

const defaultConfigYAML = `# marketfeed configuration
# Credentials belong in the environment or a .env file:
#   ALPHA_VANTAGE_API_KEY, NEWS_API_KEY, TWITTER_BEARER_TOKEN

sources:
  quotes:
    function: TIME_SERIES_DAILY
  news:
    language: en
  social:
    max_results: 10

http:
  timeout: 30s

rate_limits:
  quotes:
    requests: 25
    period: day
  news:
    requests: 1000
    period: day
  social:
    requests: 300
    period: 15_minutes
rate_limit_margin: 1.0

server:
  host: localhost
  port: 8080

metrics:
  enabled: true
  port: 9090

logging:
  level: info
`

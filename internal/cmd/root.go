package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/config"
	"github.com/marketfeed/marketfeed/internal/observability"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// appConfig is loaded by initConfig before any command runs.
	appConfig *config.Config

	// configFileUsed is empty when no config file was read.
	configFileUsed string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Aggregate stock quotes, financial news and social posts per ticker",
	Long: `marketfeed gathers stock time series (Alpha Vantage), financial news
(NewsAPI) and social posts (X recent search) for a ticker symbol while keeping
each provider within its request quota.

Credentials are read from ALPHA_VANTAGE_API_KEY, NEWS_API_KEY and
TWITTER_BEARER_TOKEN (or MARKETFEED_SOURCES_* equivalents), a .env file, or
the config file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Disable global telemetry early; serve installs the Prometheus exporter.
	observability.DisableTelemetry()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/marketfeed/config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultDotEnvFile, "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := config.LoadDotEnv(envFile); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to load dotenv file", err)
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to bind environment", err)
	}
	config.AddConfigPaths(v, cfgFile)
	used, err := config.ReadConfigFile(v)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to read config file", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	appConfig = cfg
	configFileUsed = used

	if err := observability.InitCLILogger(observability.LoggerOptions{
		Level:      cfg.Logging.Level,
		Profile:    cfg.Logging.Profile,
		Debug:      cfg.Debug || verbose,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}); err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize logger", err)
	}

	if used != "" {
		observability.CLILogger.Debug("Using config file", zap.String("path", used))
	} else {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	}
}

func toolVersion() string {
	if versionInfo.Version == "" {
		return "dev"
	}
	return versionInfo.Version
}

// cliLogger returns the CLI logger, or a no-op logger before initConfig ran.
func cliLogger() *zap.Logger {
	if observability.CLILogger != nil {
		return observability.CLILogger
	}
	return zap.NewNop()
}

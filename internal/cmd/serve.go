package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/marketfeed/marketfeed/internal/config"
	"github.com/marketfeed/marketfeed/internal/core"
	"github.com/marketfeed/marketfeed/internal/core/source"
	errwrap "github.com/marketfeed/marketfeed/internal/errors"
	"github.com/marketfeed/marketfeed/internal/metrics"
	"github.com/marketfeed/marketfeed/internal/observability"
	"github.com/marketfeed/marketfeed/internal/server"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support. All three service
credentials are required.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload the config file and apply new rate limits

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig

		if err := observability.InitServerLogger(observability.LoggerOptions{
			Level:      cfg.Logging.Level,
			Profile:    cfg.Logging.Profile,
			Debug:      cfg.Debug || verbose,
			File:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		}); err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "logger initialization failed")
		}
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
			metrics.SetServerStartTime(time.Now().Unix())
		}

		agg, limiter, err := cfg.NewAggregator(toolVersion(), logger)
		if err != nil {
			if source.IsConfigurationError(err) {
				logger.Error("Missing service credential", zap.Error(err))
			}
			return err
		}
		agg.Observer = metrics.SourceObserver{}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", toolVersion()),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		srv := server.New(server.Options{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			Version:        toolVersion(),
			Aggregator:     agg,
			Limiter:        limiter,
			Quotes:         agg.Quotes.(*source.QuotesClient),
			News:           agg.News.(*source.NewsClient),
			Social:         agg.Social.(*source.SocialClient),
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPort:    cfg.Metrics.Port,
			AdminToken:     cfg.Admin.Token,
			Logger:         logger,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: the HTTP server stops before the logger flushes.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: reloading configuration")
			return reloadRateLimits(ctx, viper.GetViper(), limiter, logger)
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			errChan <- srv.Start()
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// rateLimitUpdater receives quota changes on reload.
type rateLimitUpdater interface {
	ApplyOverrides(overrides map[core.ServiceName]core.Quota)
	ApplySafetyMargin(margin float64)
}

// reloadRateLimits re-reads the config file and applies its rate limits to
// limiter. Request logs are kept. Other settings need a restart.
func reloadRateLimits(ctx context.Context, v *viper.Viper, limiter rateLimitUpdater, logger *zap.Logger) error {
	used, err := config.ReadConfigFile(v)
	if err != nil {
		logger.Error("Failed to reload config file", zap.String("file", v.ConfigFileUsed()), zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}
	if used == "" {
		logger.Info("No config file found - using defaults and environment variables")
	}

	cfg, err := config.Load(v)
	if err != nil {
		logger.Error("Reloaded configuration is invalid", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	limiter.ApplyOverrides(cfg.Quotas())
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	logger.Info("Configuration reloaded", zap.String("file", used), zap.Int("rate_limit_overrides", len(cfg.RateLimits)))
	return nil
}

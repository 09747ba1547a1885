package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/config"
	errwrap "github.com/smsgate/smsgate/internal/errors"
	"github.com/smsgate/smsgate/internal/metrics"
	"github.com/smsgate/smsgate/internal/observability"
	"github.com/smsgate/smsgate/internal/server"
	"github.com/smsgate/smsgate/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return fmt.Errorf("%w: telemetry exporter not running", handlers.ErrDegraded)
	}
	return nil
}

// providerHealthChecker reports degraded when credentials are missing. The
// server still starts so validation and cooldown can be exercised.
type providerHealthChecker struct {
	configured bool
}

func (p providerHealthChecker) CheckHealth(ctx context.Context) error {
	if !p.configured {
		return fmt.Errorf("%w: provider credentials not configured", handlers.ErrDegraded)
	}
	return nil
}

// registerHealthCheckers attaches the pipeline's checks to hm.
func registerHealthCheckers(hm *handlers.HealthManager, p *pipeline) {
	hm.RegisterChecker("provider", providerHealthChecker{configured: p.providerConfigured})
	hm.RegisterChecker("cooldown_store", handlers.HealthCheckerFunc(func(ctx context.Context) error {
		if p.cooldown == nil {
			return errors.New("cooldown store not initialized")
		}
		return nil
	}))
	hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	if p.audit != nil {
		hm.RegisterChecker("audit_store", p.audit)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (log level only; restart for other settings)

The server stops accepting requests, drains in-flight sends, stops the
cooldown and rate limit janitors and flushes logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := config.Load(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "configuration invalid")
		}

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Logging.Profile, config.AppName)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port, config.AppName); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
			metrics.SetServerStartTime(time.Now().Unix())
		} else if err := observability.DisableMetrics(); err != nil {
			observability.ServerLogger.Warn("Failed to disable metrics", zap.Error(err))
		}

		janitorCtx, stopJanitors := context.WithCancel(context.Background())
		defer stopJanitors()

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "send pipeline setup failed")
		}
		p.start(janitorCtx)

		if !p.providerConfigured {
			observability.ServerLogger.Warn("Provider credentials missing; sends will fail until configured",
				zap.String("driver", p.gateway.Name()))
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("provider", p.gateway.Name()),
			zap.String("validation_mode", cfg.Validation.Mode),
			zap.Duration("cooldown_window", cfg.Cooldown.Window),
			zap.Bool("rate_limit", cfg.RateLimit.Enabled),
			zap.Bool("audit", cfg.Audit.Enabled),
			zap.Int("metrics_port", cfg.Metrics.Port))

		handlers.InitHealthManager(versionInfo.Version)
		registerHealthCheckers(handlers.GetHealthManager(), p)

		opts := server.Options{
			SMS:          handlers.NewSMSHandler(p.orchestrator),
			AdminToken:   cfg.Server.AdminToken,
			TrustProxy:   cfg.Server.TrustProxy,
			MetricsPort:  cfg.Metrics.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
		if p.limiter != nil {
			opts.Limiter = p.limiter
		}
		srv := server.New(cfg.Server.Host, cfg.Server.Port, opts)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		errChan := make(chan error, 1)
		done := make(chan struct{})

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger and signal completion (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			defer close(done)
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Release pipeline resources
		signals.OnShutdown(func(ctx context.Context) error {
			stopJanitors()
			if err := observability.StopMetrics(); err != nil {
				observability.ServerLogger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			if err := p.Close(); err != nil {
				observability.ServerLogger.Warn("Failed to close audit store", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			return reloadConfig(ctx)
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		select {
		case err := <-errChan:
			_ = p.Close()
			return errwrap.WrapInternal(ctx, err, "server error")
		case <-done:
			return nil
		}
	},
}

// reloadConfig re-reads the config file on SIGHUP. Only the log level is
// applied live; other settings are reported and need a restart.
func reloadConfig(ctx context.Context) error {
	observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			observability.ServerLogger.Info("No config file found - using defaults and environment variables")
			return nil
		}
		observability.ServerLogger.Error("Failed to reload config file",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	previous := config.GetConfig()
	cfg, err := config.Load(ctx)
	if err != nil {
		observability.ServerLogger.Error("Reloaded config is invalid; keeping previous settings", zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	if previous != nil && previous.Logging != cfg.Logging {
		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Logging.Profile, config.AppName)
	}

	observability.ServerLogger.Info("Configuration reloaded",
		zap.String("file", viper.ConfigFileUsed()),
		zap.String("log_level", cfg.Logging.Level))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 3000, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

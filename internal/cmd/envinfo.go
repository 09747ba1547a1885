package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()

		observability.CLILogger.Info("=== smsgate Environment Information ===")
		observability.CLILogger.Info("")

		// Application Info
		observability.CLILogger.Info("Application:")
		observability.CLILogger.Info("  Name:       " + config.AppName)
		observability.CLILogger.Info("  Version:    " + versionInfo.Version)
		observability.CLILogger.Info("  Commit:     " + versionInfo.Commit)
		observability.CLILogger.Info("  Built:      " + versionInfo.BuildDate)
		observability.CLILogger.Info("")

		// SSOT Info
		observability.CLILogger.Info("SSOT:")
		observability.CLILogger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		observability.CLILogger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		observability.CLILogger.Info("")

		// Runtime Info
		observability.CLILogger.Info("Runtime:")
		observability.CLILogger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		observability.CLILogger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		observability.CLILogger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		observability.CLILogger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		observability.CLILogger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}

		// Configuration
		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		observability.CLILogger.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		observability.CLILogger.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		observability.CLILogger.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		observability.CLILogger.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		observability.CLILogger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		observability.CLILogger.Info("")

		// Send pipeline
		observability.CLILogger.Info("Send Pipeline:")
		observability.CLILogger.Info("  Validation:     " + cfg.Validation.Mode)
		observability.CLILogger.Info("  Cooldown:       " + cfg.Cooldown.Window.String())
		if cfg.RateLimit.Enabled {
			observability.CLILogger.Info(fmt.Sprintf("  Rate Limit:     %d per %s", cfg.RateLimit.Requests, cfg.RateLimit.Window))
		} else {
			observability.CLILogger.Info("  Rate Limit:     disabled")
		}
		observability.CLILogger.Info("")

		// Provider
		observability.CLILogger.Info("Provider:")
		observability.CLILogger.Info("  Driver:         " + cfg.Provider.Driver)
		observability.CLILogger.Info("  Base URL:       " + cfg.Provider.BaseURL)
		observability.CLILogger.Info("  Account ID:     " + setStatus(cfg.Provider.AccountID))
		observability.CLILogger.Info("  Auth Secret:    " + setStatus(cfg.Provider.AuthSecret))
		observability.CLILogger.Info("  From Address:   " + cfg.Provider.FromAddress)
		if cfg.Provider.MaxRPS > 0 {
			observability.CLILogger.Info(fmt.Sprintf("  Max RPS:        %.2f (burst %d)", cfg.Provider.MaxRPS, cfg.Provider.Burst))
		}
		observability.CLILogger.Info("  TWILIO_AUTH_TOKEN: " + envStatus("TWILIO_AUTH_TOKEN"))
		observability.CLILogger.Info("")

		// Audit
		observability.CLILogger.Info("Audit:")
		observability.CLILogger.Info(fmt.Sprintf("  Enabled:        %t", cfg.Audit.Enabled), zap.Bool("audit_enabled", cfg.Audit.Enabled))
		if strings.TrimSpace(cfg.Audit.URL) != "" {
			observability.CLILogger.Info("  DB URL:         "+cfg.Audit.URL, zap.String("db_url", cfg.Audit.URL))
		} else {
			observability.CLILogger.Info("  DB Path:        "+cfg.Audit.Path, zap.String("db_path", cfg.Audit.Path))
		}
		observability.CLILogger.Info("")

		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func setStatus(value string) string {
	if strings.TrimSpace(value) != "" {
		return "(set)"
	}
	return "(not set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

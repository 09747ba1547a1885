package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/config"
	errwrap "github.com/smsgate/smsgate/internal/errors"
	"github.com/smsgate/smsgate/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		// Check 1: Logger initialized
		if observability.CLILogger == nil {
			// Can't log if logger is nil, so use stderr
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		observability.CLILogger.Info("Running health check...")
		observability.CLILogger.Info("✅ Logger initialized")

		// Check 2: Version info available
		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 3: Configuration loads and validates
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Configuration invalid")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration invalid"))
			return
		}
		observability.CLILogger.Info("✅ Configuration valid")

		// Check 4: Send pipeline can be assembled
		p, err := buildPipeline(cmd.Context(), cfg)
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Send pipeline setup failed")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Send pipeline setup failed", errwrap.WrapConfigInvalid(cmd.Context(), err, "send pipeline setup failed"))
			return
		}
		defer p.Close() // nolint:errcheck // best-effort cleanup
		if p.providerConfigured {
			observability.CLILogger.Info("✅ Send pipeline ready", zap.String("provider", p.gateway.Name()))
		} else {
			observability.CLILogger.Warn("⚠️  Send pipeline ready, provider credentials missing", zap.String("provider", p.gateway.Name()))
		}

		// Overall status
		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("=== " + config.AppName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 7

		// Check 1: Go version
		goVersion := runtime.Version()
		observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go runtime... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))

		// Check 2: Crucible and Gofulmen
		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking Gofulmen... ✅ v%s (crucible v%s)", totalChecks, version.Gofulmen, version.Crucible),
				zap.String("gofulmen_version", version.Gofulmen),
				zap.String("crucible_version", version.Crucible))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[2/%d] Checking Gofulmen... ⚠️  version metadata unavailable", totalChecks))
			allChecks = false
		}

		// Check 3: Config file
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			observability.CLILogger.Warn(fmt.Sprintf("[3/%d] Checking config file... ⚠️  cannot resolve config directory", totalChecks))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking config file... ✅ %s (%s)", totalChecks, configPath, existenceStatus(fileExists(configPath))),
				zap.String("config_path", configPath))
		}

		// Check 4: Configuration validity
		cfg, cfgErr := config.Load(ctx)
		if cfgErr != nil {
			observability.CLILogger.Error(fmt.Sprintf("[4/%d] Checking configuration... ❌ invalid", totalChecks), zap.Error(cfgErr))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking configuration... ✅ valid", totalChecks))
		}

		// Check 5: Provider credentials
		if cfgErr == nil {
			_, configured, err := buildGateway(cfg.Provider)
			switch {
			case err != nil:
				observability.CLILogger.Error(fmt.Sprintf("[5/%d] Checking provider... ❌ %v", totalChecks, err))
				allChecks = false
			case !configured:
				observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking provider... ⚠️  %s credentials not set", totalChecks, cfg.Provider.Driver))
				observability.CLILogger.Info("       Set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER or provider.* in the config file.")
				allChecks = false
			default:
				observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking provider... ✅ %s", totalChecks, cfg.Provider.Driver),
					zap.String("driver", cfg.Provider.Driver))
			}
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking provider... ⚠️  skipped (config not loaded)", totalChecks))
		}

		// Check 6: Audit log
		switch {
		case cfgErr != nil:
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking audit log... ⚠️  skipped (config not loaded)", totalChecks))
		case !cfg.Audit.Enabled:
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking audit log... ✅ disabled", totalChecks))
		case cfg.Audit.URL != "":
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking audit log... ✅ %s (remote)", totalChecks, cfg.Audit.URL),
				zap.String("db_url", cfg.Audit.URL))
		default:
			absPath, _ := filepath.Abs(cfg.Audit.Path)
			if info, statErr := os.Stat(absPath); statErr == nil {
				observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking audit log... ✅ %s (%s)", totalChecks, absPath, formatFileSize(info.Size())),
					zap.String("db_path", absPath),
					zap.Int64("db_size", info.Size()))
			} else if os.IsNotExist(statErr) {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking audit log... ⚠️  %s (not created yet)", totalChecks, absPath),
					zap.String("db_path", absPath))
			} else {
				observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking audit log... ⚠️  %s (error: %v)", totalChecks, absPath, statErr),
					zap.Error(statErr))
				allChecks = false
			}
		}

		// Check 7: Listen address
		if cfgErr == nil {
			observability.CLILogger.Info(fmt.Sprintf("[7/%d] Checking listen address... ✅ %s:%d", totalChecks, cfg.Server.Host, cfg.Server.Port))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[7/%d] Checking listen address... ⚠️  skipped (config not loaded)", totalChecks))
		}

		observability.CLILogger.Info("")
		if allChecks {
			observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce      bool
	doctorInitAuthSecret string
	doctorResetConfig    bool
	doctorResetData      bool
	doctorResetAll       bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		secret := strings.TrimSpace(doctorInitAuthSecret)
		if strings.EqualFold(secret, "prompt") {
			value, err := promptForValue("Enter provider auth secret (leave blank to skip): ")
			if err != nil {
				return err
			}
			secret = value
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if secret != "" {
			mode = 0600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(secret)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Audit.URL != "" {
				return fmt.Errorf("remote audit store configured; database reset is not supported")
			}

			absPath, _ := filepath.Abs(cfg.Audit.Path)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Audit log removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Audit log already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove audit log: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", config.DefaultConfigPath()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAuthSecret, "auth-secret", "", "set the provider auth secret or use 'prompt' to enter")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local audit log")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func buildInitConfig(authSecret string) string {
	lines := []string{
		"# smsgate config - created by 'smsgate doctor init'",
		"server:",
		"  port: 3000",
		"provider:",
		"  driver: twilio",
		"  # account_id: \"\"    # or TWILIO_ACCOUNT_SID",
		"  # from_address: \"\"  # or TWILIO_PHONE_NUMBER",
	}

	if strings.TrimSpace(authSecret) != "" {
		lines = append(lines, fmt.Sprintf("  auth_secret: %q", authSecret))
	} else {
		lines = append(lines, "  # auth_secret: \"\"   # Set via TWILIO_AUTH_TOKEN or uncomment")
	}

	lines = append(lines,
		"validation:",
		"  mode: regional",
		"cooldown:",
		"  window: 10s",
		"rate_limit:",
		"  enabled: true",
		"  requests: 5",
		"  window: 15m",
		"audit:",
		"  enabled: false",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}

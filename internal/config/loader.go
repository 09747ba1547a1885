// Package config provides centralized configuration management for smsgate.
// Values are layered as defaults, then an optional YAML file, then
// environment variables and flags through viper, then runtime overrides.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config and data directories and the binary.
	AppName = "smsgate"

	// EnvPrefix is prepended to every environment variable, e.g. SMSGATE_SERVER_PORT.
	EnvPrefix = "SMSGATE"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// legacyEnv maps config keys to unprefixed variables understood by earlier
// deployments. The prefixed form always takes precedence.
var legacyEnv = map[string]string{
	"server.port":           "PORT",
	"provider.account_id":   "TWILIO_ACCOUNT_SID",
	"provider.auth_secret":  "TWILIO_AUTH_TOKEN",
	"provider.from_address": "TWILIO_PHONE_NUMBER",
}

// Configure prepares v for smsgate: defaults, env prefix, key replacer and
// legacy variable bindings.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, legacy)
	}

	SetDefaults(v)
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.trust_proxy", false)

	// Provider defaults
	v.SetDefault("provider.driver", "twilio")
	v.SetDefault("provider.account_id", "")
	v.SetDefault("provider.auth_secret", "")
	v.SetDefault("provider.from_address", "")
	v.SetDefault("provider.base_url", "https://api.twilio.com")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.max_rps", 0)
	v.SetDefault("provider.burst", 1)

	v.SetDefault("validation.mode", "regional")

	// Cooldown defaults
	v.SetDefault("cooldown.window", "10s")
	v.SetDefault("cooldown.retention", "1h")
	v.SetDefault("cooldown.sweep_interval", "10m")

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 5)
	v.SetDefault("rate_limit.window", "15m")

	// Audit defaults
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", DefaultStorePath())
	v.SetDefault("audit.url", "")
	v.SetDefault("audit.auth_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// Load decodes the global viper instance into a validated Config.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	return LoadFrom(ctx, viper.GetViper(), runtimeOverrides...)
}

// LoadFrom decodes v into a validated Config and stores it as the current
// configuration. Runtime overrides are merged on top in order.
func LoadFrom(ctx context.Context, v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := v.AllSettings()
	for _, overrides := range runtimeOverrides {
		mergeMaps(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Provider.Driver = strings.ToLower(strings.TrimSpace(cfg.Provider.Driver))
	cfg.Validation.Mode = strings.ToLower(strings.TrimSpace(cfg.Validation.Mode))
	if strings.TrimSpace(cfg.Audit.URL) == "" && strings.TrimSpace(cfg.Audit.Path) == "" {
		cfg.Audit.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// mergeMaps merges src into dst, recursing into nested maps. Keys are
// lowercased to match viper's normalized settings.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		if nested, ok := value.(map[string]any); ok {
			existing, ok := dst[key].(map[string]any)
			if !ok {
				existing = map[string]any{}
				dst[key] = existing
			}
			mergeMaps(existing, nested)
			continue
		}
		dst[key] = value
	}
}

// DefaultConfigDir returns the XDG-compliant config directory.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(AppName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := DefaultConfigDir()
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the audit database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

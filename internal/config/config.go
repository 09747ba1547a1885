package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Validation ValidationConfig `mapstructure:"validation"`
	Cooldown   CooldownConfig   `mapstructure:"cooldown"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken enables POST /admin/signal when non-empty.
	AdminToken string `mapstructure:"admin_token"`

	// TrustProxy keys clients by X-Forwarded-For / X-Real-IP instead of the peer.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// ProviderConfig selects and configures the outbound SMS provider.
type ProviderConfig struct {
	// Driver is "twilio" or "fake".
	Driver      string        `mapstructure:"driver"`
	AccountID   string        `mapstructure:"account_id"`
	AuthSecret  string        `mapstructure:"auth_secret"`
	FromAddress string        `mapstructure:"from_address"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// MaxRPS caps outbound calls per second across the process; 0 disables it.
	MaxRPS float64 `mapstructure:"max_rps"`
	Burst  int     `mapstructure:"burst"`
}

// ValidationConfig selects the phone number rules.
type ValidationConfig struct {
	// Mode is "regional" or "generic".
	Mode string `mapstructure:"mode"`
}

// CooldownConfig controls the per-destination cooldown.
type CooldownConfig struct {
	Window        time.Duration `mapstructure:"window"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig controls the per-address request limit on /api routes.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AuditConfig contains the libsql send audit log configuration
type AuditConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile is "structured" (JSON) or "simple" (console)
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port; /metrics on the main
	// port proxies to it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}

	switch strings.ToLower(strings.TrimSpace(c.Provider.Driver)) {
	case "twilio", "fake":
	default:
		add("provider.driver must be twilio or fake, got %q", c.Provider.Driver)
	}
	if c.Provider.Timeout <= 0 {
		add("provider.timeout must be positive")
	}
	if c.Provider.MaxRPS < 0 {
		add("provider.max_rps must not be negative")
	}
	if c.Provider.MaxRPS > 0 && c.Provider.Burst < 1 {
		add("provider.burst must be at least 1 when max_rps is set")
	}

	switch strings.ToLower(strings.TrimSpace(c.Validation.Mode)) {
	case "regional", "generic":
	default:
		add("validation.mode must be regional or generic, got %q", c.Validation.Mode)
	}

	if c.Cooldown.Window <= 0 {
		add("cooldown.window must be positive")
	}
	if c.Cooldown.Retention < c.Cooldown.Window {
		add("cooldown.retention must be at least cooldown.window")
	}
	if c.Cooldown.SweepInterval <= 0 {
		add("cooldown.sweep_interval must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			add("rate_limit.requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			add("rate_limit.window must be positive")
		}
	}

	if c.Audit.Enabled && strings.TrimSpace(c.Audit.Path) == "" && strings.TrimSpace(c.Audit.URL) == "" {
		add("audit.path or audit.url is required when audit is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

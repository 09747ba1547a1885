package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	Configure(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadFrom(context.Background(), newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "twilio", cfg.Provider.Driver)
	assert.Equal(t, "https://api.twilio.com", cfg.Provider.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, float64(0), cfg.Provider.MaxRPS)

	assert.Equal(t, "regional", cfg.Validation.Mode)

	assert.Equal(t, 10*time.Second, cfg.Cooldown.Window)
	assert.Equal(t, time.Hour, cfg.Cooldown.Retention)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown.SweepInterval)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)

	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, filepath.Join(gfconfig.GetAppDataDir(AppName), AppName+".db"), cfg.Audit.Path)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadEnvironment(t *testing.T) {
	t.Run("prefixed variables", func(t *testing.T) {
		t.Setenv("SMSGATE_SERVER_PORT", "4000")
		t.Setenv("SMSGATE_COOLDOWN_WINDOW", "30s")
		t.Setenv("SMSGATE_VALIDATION_MODE", "GENERIC")
		t.Setenv("SMSGATE_RATE_LIMIT_REQUESTS", "20")

		cfg, err := LoadFrom(context.Background(), newTestViper(t))
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Cooldown.Window)
		assert.Equal(t, "generic", cfg.Validation.Mode)
		assert.Equal(t, 20, cfg.RateLimit.Requests)
	})

	t.Run("legacy variables", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
		t.Setenv("TWILIO_AUTH_TOKEN", "secret")
		t.Setenv("TWILIO_PHONE_NUMBER", "+15005550006")

		cfg, err := LoadFrom(context.Background(), newTestViper(t))
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
		assert.Equal(t, "AC123", cfg.Provider.AccountID)
		assert.Equal(t, "secret", cfg.Provider.AuthSecret)
		assert.Equal(t, "+15005550006", cfg.Provider.FromAddress)
	})

	t.Run("prefixed wins over legacy", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		t.Setenv("SMSGATE_SERVER_PORT", "6000")

		cfg, err := LoadFrom(context.Background(), newTestViper(t))
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Server.Port)
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  driver: fake
  max_rps: 2.5
  burst: 3
cooldown:
  window: 5s
rate_limit:
  enabled: false
`), 0o600))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "fake", cfg.Provider.Driver)
	assert.Equal(t, 2.5, cfg.Provider.MaxRPS)
	assert.Equal(t, 3, cfg.Provider.Burst)
	assert.Equal(t, 5*time.Second, cfg.Cooldown.Window)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRuntimeOverrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), newTestViper(t), map[string]any{
		"server":   map[string]any{"port": 8081},
		"provider": map[string]any{"driver": "fake"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "fake", cfg.Provider.Driver)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "sibling keys survive the merge")
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		contains  string
	}{
		{"unknown driver", map[string]any{"provider": map[string]any{"driver": "carrier-pigeon"}}, "provider.driver"},
		{"unknown mode", map[string]any{"validation": map[string]any{"mode": "lunar"}}, "validation.mode"},
		{"zero window", map[string]any{"cooldown": map[string]any{"window": "0s"}}, "cooldown.window"},
		{"zero limit", map[string]any{"rate_limit": map[string]any{"requests": 0}}, "rate_limit.requests"},
		{"throttle without burst", map[string]any{"provider": map[string]any{"max_rps": 5, "burst": 0}}, "provider.burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), newTestViper(t), tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := DefaultConfigPath()
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Contains(t, path, AppName)
}

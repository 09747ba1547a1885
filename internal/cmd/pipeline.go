package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/core/cooldown"
	"github.com/smsgate/smsgate/internal/core/engine"
	"github.com/smsgate/smsgate/internal/core/phone"
	"github.com/smsgate/smsgate/internal/core/ratelimit"
	"github.com/smsgate/smsgate/internal/core/store"
	"github.com/smsgate/smsgate/internal/metrics"
	"github.com/smsgate/smsgate/internal/provider"
	"github.com/smsgate/smsgate/internal/provider/twilio"
)

// pipeline holds the components behind one process's send path.
type pipeline struct {
	cooldown     *cooldown.Store
	limiter      *ratelimit.Limiter
	gateway      provider.Gateway
	orchestrator *engine.Orchestrator
	audit        *store.Store

	providerConfigured bool
}

// buildPipeline wires validator, cooldown, limiter, gateway and the optional
// audit log from cfg. The limiter is nil when rate limiting is disabled.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	validator, err := phone.New(phone.Mode(cfg.Validation.Mode))
	if err != nil {
		return nil, err
	}

	gateway, configured, err := buildGateway(cfg.Provider)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cooldown: cooldown.New(
			cooldown.WithWindow(cfg.Cooldown.Window),
			cooldown.WithRetention(cfg.Cooldown.Retention),
			cooldown.WithSweepInterval(cfg.Cooldown.SweepInterval),
			cooldown.WithSweepHook(metrics.RecordCooldownSweep),
		),
		gateway:            gateway,
		providerConfigured: configured,
	}

	if cfg.RateLimit.Enabled {
		p.limiter = ratelimit.New(ratelimit.RateLimit{
			RequestsPerWindow: cfg.RateLimit.Requests,
			WindowDuration:    cfg.RateLimit.Window,
		})
	}

	p.orchestrator = &engine.Orchestrator{
		Validator: validator,
		Cooldown:  p.cooldown,
		Gateway:   gateway,
		From:      cfg.Provider.FromAddress,
	}

	if cfg.Audit.Enabled {
		auditStore, err := store.OpenAndMigrate(ctx, cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		p.audit = auditStore
		p.orchestrator.Recorder = auditStore
	}

	return p, nil
}

// start launches the cooldown and limiter janitors; they stop with ctx.
func (p *pipeline) start(ctx context.Context) {
	p.cooldown.StartJanitor(ctx)
	if p.limiter != nil {
		p.limiter.StartJanitor(ctx)
	}
}

func (p *pipeline) Close() error {
	if p == nil || p.audit == nil {
		return nil
	}
	return p.audit.Close()
}

// buildGateway returns the provider for cfg.Driver, throttled when max_rps
// is set, and whether its credentials are present.
func buildGateway(cfg config.ProviderConfig) (provider.Gateway, bool, error) {
	var (
		gateway    provider.Gateway
		configured bool
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "twilio":
		client := twilio.NewClient(cfg.BaseURL, cfg.AccountID, cfg.AuthSecret)
		if cfg.Timeout > 0 {
			client.Timeout = cfg.Timeout
		}
		gateway = client
		configured = client.Configured() && strings.TrimSpace(cfg.FromAddress) != ""
	case "fake":
		gateway = &provider.Fake{}
		configured = true
	default:
		return nil, false, fmt.Errorf("unsupported provider driver: %s", cfg.Driver)
	}

	return provider.NewThrottled(gateway, cfg.MaxRPS, cfg.Burst), configured, nil
}

package metrics

import (
	"time"

	"github.com/smsgate/smsgate/internal/observability"
)

// SMS gateway metrics following Prometheus conventions
var (
	SendAttemptsTotal        = "sms_send_attempts_total"
	CooldownRejectionsTotal  = "sms_cooldown_rejections_total"
	RateLimitRejectionsTotal = "sms_rate_limit_rejections_total"
	ProviderErrorsTotal      = "sms_provider_errors_total"
	ProviderDuration         = "sms_provider_duration_ms"
	CooldownEntries          = "sms_cooldown_entries"
	CooldownSweepRemoved     = "sms_cooldown_sweep_removed"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordSendAttempt records the terminal outcome of an orchestrated send
// (committed, rolled_back, rejected) together with the rejection kind.
func RecordSendAttempt(outcome string, kind string) {
	if observability.TelemetrySystem == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	_ = observability.TelemetrySystem.Counter(
		SendAttemptsTotal,
		1,
		map[string]string{
			"outcome": outcome,
			"kind":    kind,
		},
	)
}

// RecordCooldownRejection records a send denied by the destination cooldown
func RecordCooldownRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(CooldownRejectionsTotal, 1, nil)
	}
}

// RecordRateLimitRejection records a request denied by the per-address limiter
func RecordRateLimitRejection(endpoint string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitRejectionsTotal,
			1,
			map[string]string{"endpoint": endpoint},
		)
	}
}

// RecordProviderCall records provider latency and, on failure, the error subkind
func RecordProviderCall(provider string, duration time.Duration, subkind string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Histogram(
		ProviderDuration,
		duration,
		map[string]string{"provider": provider},
	)

	if subkind != "" {
		_ = observability.TelemetrySystem.Counter(
			ProviderErrorsTotal,
			1,
			map[string]string{
				"provider": provider,
				"subkind":  subkind,
			},
		)
	}
}

// RecordCooldownSweep records a janitor pass over the cooldown store
func RecordCooldownSweep(removed, remaining int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(CooldownSweepRemoved, float64(removed), nil)
	_ = observability.TelemetrySystem.Gauge(CooldownEntries, float64(remaining), nil)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, status string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

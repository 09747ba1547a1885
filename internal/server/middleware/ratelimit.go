package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/core"
	"github.com/smsgate/smsgate/internal/core/ratelimit"
	"github.com/smsgate/smsgate/internal/metrics"
	"github.com/smsgate/smsgate/internal/observability"
)

// Limiter is the per-key admission check applied by RateLimit.
type Limiter interface {
	Allow(key string) ratelimit.Decision
	Now() time.Time
}

// RateLimit rejects requests from a client address that has exhausted its
// window with 429 RATE_LIMITED, without invoking next. It keys on RemoteAddr,
// which is the socket peer unless chi's RealIP ran first.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Allow(ClientIP(r))

			w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(ceilSeconds(decision.ResetAt.Sub(limiter.Now()))))

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			serr := core.NewRateLimited(decision.RetryAfter)
			retryAfter := serr.RetryAfterSeconds()

			envelope := errors.NewErrorEnvelope(string(serr.Kind), serr.Message).
				WithCorrelationID(GetRequestID(r.Context())).
				WithDetails(map[string]interface{}{
					"retry_after_seconds": retryAfter,
				})

			metrics.RecordRateLimitRejection(getEndpointPattern(r))
			metrics.RecordError(envelope.Code, http.StatusTooManyRequests)
			if observability.ServerLogger != nil {
				observability.ServerLogger.Info("Rate limit exceeded",
					zap.String("client", ClientIP(r)),
					zap.String("path", r.URL.Path),
					zap.Int("retry_after_seconds", retryAfter),
					zap.String("request_id", envelope.CorrelationID),
				)
			}

			writeErrorResponse(w, envelope, http.StatusTooManyRequests)
		})
	}
}

// ClientIP returns the caller address without its port.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

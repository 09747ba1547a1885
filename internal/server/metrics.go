package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/smsgate/smsgate/internal/errors"
	"github.com/smsgate/smsgate/internal/observability"
)

const defaultMetricsPort = 9090

var metricsProxyClient = &http.Client{
	Timeout: 5 * time.Second,
}

var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// MetricsHandler proxies Prometheus metrics from the internal exporter so callers
// can scrape /metrics on the main HTTP server. configuredPort is used when the
// exporter has not reported the port it bound.
func MetricsHandler(configuredPort int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if observability.PrometheusExporter == nil {
			HandleError(w, r, apperrors.NewServiceUnavailableError("Metrics exporter not initialized"))
			return
		}

		metricsPort := observability.GetMetricsPort()
		if metricsPort == 0 {
			metricsPort = configuredPort
		}
		if metricsPort == 0 {
			metricsPort = defaultMetricsPort
		}
		metricsURL := fmt.Sprintf("http://127.0.0.1:%d/metrics", metricsPort)

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, metricsURL, nil)
		if err != nil {
			HandleError(w, r, apperrors.WrapInternal(r.Context(), err, "Unable to construct metrics request"))
			return
		}

		// Preserve caller hint for content negotiation
		if accept := r.Header.Get("Accept"); accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := metricsProxyClient.Do(req)
		if err != nil {
			envelope, _ := apperrors.NewServiceUnavailableError("Prometheus exporter unavailable").
				WithContext(map[string]interface{}{
					"metrics_url":    metricsURL,
					"original_error": err.Error(),
				})
			HandleError(w, r, envelope)
			return
		}
		defer func() {
			if err := resp.Body.Close(); err != nil && observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Failed to close metrics response body", zap.Error(err))
			}
		}()

		for key, values := range resp.Header {
			if hopByHopHeaders[http.CanonicalHeaderKey(key)] {
				continue
			}
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}

		// Ensure we always advertise Prometheus content type
		if resp.Header.Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		}

		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil && observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Failed to write metrics response", zap.Error(err))
		}
	}
}

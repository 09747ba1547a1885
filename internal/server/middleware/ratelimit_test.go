package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsgate/smsgate/internal/core/ratelimit"
)

func newLimitedHandler(t *testing.T, requests int) (http.Handler, *int32) {
	t.Helper()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.RateLimit{RequestsPerWindow: requests, WindowDuration: 15 * time.Minute})
	limiter.Clock = func() time.Time { return now }

	var calls int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})
	return RequestID(RateLimit(limiter)(next)), &calls
}

func TestRateLimitAllowsThenRejects(t *testing.T) {
	handler, calls := newLimitedHandler(t, 5)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/sms", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
		assert.Equal(t, "5", rec.Header().Get("RateLimit-Limit"))
		assert.Equal(t, []string{"4", "3", "2", "1", "0"}[i], rec.Header().Get("RateLimit-Remaining"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sms", nil)
	req.RemoteAddr = "203.0.113.7:6666"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, int32(5), atomic.LoadInt32(calls), "rejected request never reaches the handler")
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Equal(t, "900", rec.Header().Get("RateLimit-Reset"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "RATE_LIMITED", body.Code)
	assert.Contains(t, body.Error, "15 minutes")
	assert.NotEmpty(t, body.RequestID)
}

func TestRateLimitKeysBySocketPeer(t *testing.T) {
	handler, calls := newLimitedHandler(t, 1)

	send := func(peer, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/sms", nil)
		req.RemoteAddr = peer
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.10:1234", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.10:1234", "198.51.100.2"), "spoofed header does not open a new window")
	assert.Equal(t, http.StatusOK, send("192.0.2.11:1234", "198.51.100.1"), "a different peer has its own window")
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestRateLimitResetHeaderTracksWindowStart(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.RateLimit{RequestsPerWindow: 2, WindowDuration: 15 * time.Minute})
	limiter.Clock = func() time.Time { return now }
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/sms", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, "900", send().Header().Get("RateLimit-Reset"))

	now = now.Add(5*time.Minute + 500*time.Millisecond)
	rec := send()
	assert.Equal(t, "600", rec.Header().Get("RateLimit-Reset"))
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	RateLimit(nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sms", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:4321"
	assert.Equal(t, "192.0.2.10", ClientIP(req))

	req.RemoteAddr = "192.0.2.11"
	assert.Equal(t, "192.0.2.11", ClientIP(req))
}

// Package ratelimit bounds send attempts per source address with a fixed
// window counter.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Reference policy: 5 attempts per 15 minutes.
const (
	DefaultRequests = 5
	DefaultWindow   = 15 * time.Minute
)

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type window struct {
	start time.Time
	count int
}

// Limiter enforces RateLimit per key. The window opens on the first attempt
// and resets once WindowDuration has elapsed.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	Limit RateLimit
	Clock func() time.Time

	// SweepInterval controls StartJanitor; zero disables it.
	SweepInterval time.Duration
}

// New returns a limiter for limit.
func New(limit RateLimit) *Limiter {
	if limit.RequestsPerWindow <= 0 {
		limit.RequestsPerWindow = DefaultRequests
	}
	if limit.WindowDuration <= 0 {
		limit.WindowDuration = DefaultWindow
	}
	return &Limiter{
		windows:       make(map[string]*window),
		Limit:         limit,
		SweepInterval: time.Minute,
	}
}

// Allow counts one attempt for key and reports whether it fits the window.
// Denied attempts are not counted.
func (l *Limiter) Allow(key string) Decision {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	now := l.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windows == nil {
		l.windows = make(map[string]*window)
	}
	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.Limit.WindowDuration)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	resetAt := w.start.Add(l.Limit.WindowDuration)
	if w.count >= l.Limit.RequestsPerWindow {
		return Decision{
			Allowed:    false,
			Limit:      l.Limit.RequestsPerWindow,
			Remaining:  0,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     l.Limit.RequestsPerWindow,
		Remaining: l.Limit.RequestsPerWindow - w.count,
		ResetAt:   resetAt,
	}
}

// Sweep drops windows that have fully elapsed.
func (l *Limiter) Sweep() int {
	now := l.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.Limit.WindowDuration)) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// StartJanitor sweeps expired windows until ctx is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context) {
	if l == nil || l.SweepInterval <= 0 {
		return
	}

	t := time.NewTicker(l.SweepInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}

// Now reads the limiter's clock.
func (l *Limiter) Now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

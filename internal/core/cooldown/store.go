// Package cooldown enforces a minimum interval between accepted sends to the
// same destination.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Defaults for the reference policy.
const (
	DefaultWindow        = 10 * time.Second
	DefaultRetention     = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Decision is the outcome of CheckAndReserve.
type Decision struct {
	Allowed          bool
	RemainingSeconds int
}

// Store maps normalized destinations to the time of their last accepted
// attempt. A destination with a timestamp inside the window cannot be
// reserved again.
type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time

	window        time.Duration
	retention     time.Duration
	sweepInterval time.Duration
	clock         func() time.Time
	onSweep       func(removed, remaining int)
}

// Option configures a Store.
type Option func(*Store)

func WithWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepInterval = d }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSweepHook is called after every janitor sweep.
func WithSweepHook(fn func(removed, remaining int)) Option {
	return func(s *Store) { s.onSweep = fn }
}

// New returns an empty store with the reference policy applied.
func New(opts ...Option) *Store {
	s := &Store{
		entries:       make(map[string]time.Time),
		window:        DefaultWindow,
		retention:     DefaultRetention,
		sweepInterval: DefaultSweepInterval,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured cooldown window.
func (s *Store) Window() time.Duration { return s.window }

// Now reads the store clock.
func (s *Store) Now() time.Time { return s.clock() }

// CheckAndReserve writes now for destination unless it was reserved less
// than one window ago. Check and write happen under one lock.
func (s *Store) CheckAndReserve(destination string, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.entries[destination]; ok {
		elapsed := now.Sub(last)
		if elapsed < s.window {
			return Decision{Allowed: false, RemainingSeconds: ceilSeconds(s.window - elapsed)}
		}
	}

	s.entries[destination] = now
	return Decision{Allowed: true}
}

// Rollback releases the reservation for destination.
func (s *Store) Rollback(destination string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, destination)
}

// Sweep deletes entries strictly older than retention and returns how many
// were removed.
func (s *Store) Sweep(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for dest, ts := range s.entries {
		if now.Sub(ts) > retention {
			delete(s.entries, dest)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked destinations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor sweeps on a ticker until ctx is cancelled.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.sweepInterval <= 0 {
		return
	}

	t := time.NewTicker(s.sweepInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				removed := s.Sweep(s.clock(), s.retention)
				if s.onSweep != nil {
					s.onSweep(removed, s.Len())
				}
			}
		}
	}()
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

package cooldown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dest = "+639171234567"

func TestCheckAndReserve(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New()

	first := store.CheckAndReserve(dest, now)
	require.True(t, first.Allowed)

	second := store.CheckAndReserve(dest, now.Add(3*time.Second))
	require.False(t, second.Allowed)
	assert.Equal(t, 7, second.RemainingSeconds)

	partial := store.CheckAndReserve(dest, now.Add(3500*time.Millisecond))
	require.False(t, partial.Allowed)
	assert.Equal(t, 7, partial.RemainingSeconds, "remaining seconds round up")

	afterWindow := store.CheckAndReserve(dest, now.Add(DefaultWindow))
	require.True(t, afterWindow.Allowed)
}

func TestDeniedRemainingWithinWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New(WithWindow(10 * time.Second))
	require.True(t, store.CheckAndReserve(dest, now).Allowed)

	for _, offset := range []time.Duration{0, time.Millisecond, 5 * time.Second, 9999 * time.Millisecond} {
		dec := store.CheckAndReserve(dest, now.Add(offset))
		require.False(t, dec.Allowed, offset.String())
		assert.Greater(t, dec.RemainingSeconds, 0)
		assert.LessOrEqual(t, dec.RemainingSeconds, 10)
	}
}

func TestDeniedDoesNotRefreshReservation(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New()
	require.True(t, store.CheckAndReserve(dest, now).Allowed)
	require.False(t, store.CheckAndReserve(dest, now.Add(9*time.Second)).Allowed)

	assert.True(t, store.CheckAndReserve(dest, now.Add(10*time.Second)).Allowed)
}

func TestRollbackAllowsImmediateRetry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New()

	require.True(t, store.CheckAndReserve(dest, now).Allowed)
	store.Rollback(dest)
	assert.True(t, store.CheckAndReserve(dest, now).Allowed)

	// Rolling back an unknown destination is a no-op.
	store.Rollback("+639000000000")
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := New()

	store.CheckAndReserve("old", now.Add(-2*time.Hour))
	store.CheckAndReserve("edge", now.Add(-time.Hour))
	store.CheckAndReserve("young", now.Add(-59*time.Minute))
	store.CheckAndReserve("fresh", now)

	removed := store.Sweep(now, time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 3, store.Len())

	// The active cooldown entry survives.
	assert.False(t, store.CheckAndReserve("fresh", now.Add(time.Second)).Allowed)
}

func TestConcurrentReserveAllowsOnce(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := New()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.CheckAndReserve(dest, now).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
}

func TestJanitorSweepsUntilCancelled(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	swept := make(chan int, 4)

	store := New(
		WithSweepInterval(5*time.Millisecond),
		WithRetention(time.Minute),
		WithClock(func() time.Time { return base.Add(2 * time.Minute) }),
		WithSweepHook(func(removed, _ int) {
			select {
			case swept <- removed:
			default:
			}
		}),
	)
	store.CheckAndReserve(dest, base)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartJanitor(ctx)

	select {
	case removed := <-swept:
		assert.Equal(t, 1, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not sweep")
	}
	assert.Equal(t, 0, store.Len())
}

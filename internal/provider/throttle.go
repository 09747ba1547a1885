package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled caps the outbound request rate to the provider across the whole
// process. Calls over budget fail fast with ErrThrottled.
type Throttled struct {
	next Gateway
	lim  *rate.Limiter
}

// NewThrottled wraps next. A non-positive rps disables throttling and
// returns next unchanged.
func NewThrottled(next Gateway, rps float64, burst int) Gateway {
	if rps <= 0 || next == nil {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if !t.lim.Allow() {
		return nil, ErrThrottled
	}
	return t.next.Send(ctx, msg)
}

func (t *Throttled) Name() string {
	return t.next.Name()
}

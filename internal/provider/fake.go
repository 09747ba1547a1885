package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fake accepts every message unless Err is set. It records what it was sent
// and is used for local development and tests.
type Fake struct {
	mu   sync.Mutex
	sent []Message

	Err   error
	Delay time.Duration
	Clock func() time.Time
}

func (f *Fake) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.Delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)

	if f.Err != nil {
		return nil, f.Err
	}

	now := time.Now().UTC()
	if f.Clock != nil {
		now = f.Clock()
	}
	return &Receipt{
		MessageID:  "SM" + uuid.NewString(),
		Status:     "queued",
		AcceptedAt: now,
	}, nil
}

func (f *Fake) Name() string {
	return "fake"
}

// Sent returns a copy of the messages received so far.
func (f *Fake) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.sent))
	copy(out, f.sent)
	return out
}

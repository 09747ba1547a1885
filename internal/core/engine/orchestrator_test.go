package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smsgate/smsgate/internal/core"
	"github.com/smsgate/smsgate/internal/core/cooldown"
	"github.com/smsgate/smsgate/internal/core/phone"
	"github.com/smsgate/smsgate/internal/provider"
)

type memoryRecorder struct {
	mu      sync.Mutex
	records []*core.SendRecord
	err     error
}

func (m *memoryRecorder) RecordSend(_ context.Context, rec *core.SendRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

// blockingGateway holds every call until release is closed.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingGateway) Send(ctx context.Context, _ provider.Message) (*provider.Receipt, error) {
	b.entered <- struct{}{}
	<-b.release
	return &provider.Receipt{MessageID: "SMslow", Status: "queued"}, nil
}

func (b *blockingGateway) Name() string { return "blocking" }

func newTestOrchestrator(gw provider.Gateway, now *time.Time) (*Orchestrator, *cooldown.Store) {
	clock := func() time.Time { return *now }
	store := cooldown.New(cooldown.WithClock(clock))
	return &Orchestrator{
		Validator: phone.Regional{},
		Cooldown:  store,
		Gateway:   gw,
		From:      "+15005550006",
		Clock:     clock,
	}, store
}

func TestSendCommits(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &provider.Fake{Clock: func() time.Time { return now }}
	recorder := &memoryRecorder{}
	o, store := newTestOrchestrator(fake, &now)
	o.Recorder = recorder

	result, err := o.Send(context.Background(), core.SendRequest{
		Destination: "0917 123-4567",
		SenderLabel: "ACME",
		Body:        "Hello",
		RequestID:   "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "+639171234567", result.Recipient)
	assert.Equal(t, "ACME", result.Sender)
	assert.True(t, strings.HasPrefix(result.MessageID, "SM"))
	assert.Equal(t, now, result.Timestamp)

	sent := fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, provider.Message{To: "+639171234567", From: "+15005550006", Body: "Hello"}, sent[0])

	assert.Equal(t, 1, store.Len(), "reservation is kept after success")

	require.Len(t, recorder.records, 1)
	assert.Equal(t, core.SendStatusCommitted, recorder.records[0].Status)
	assert.Equal(t, result.MessageID, recorder.records[0].MessageID)
	assert.Equal(t, "req-1", recorder.records[0].RequestID)
}

func TestSendCooldownDeniesRepeat(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &provider.Fake{}
	o, _ := newTestOrchestrator(fake, &now)

	req := core.SendRequest{Destination: "09171234567", SenderLabel: "ACME", Body: "Hi"}
	_, err := o.Send(context.Background(), req)
	require.NoError(t, err)

	now = now.Add(3 * time.Second)
	_, err = o.Send(context.Background(), req)
	require.Error(t, err)

	var serr *core.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, core.KindCooldownActive, serr.Kind)
	assert.Equal(t, 7, serr.RetryAfterSeconds())
	assert.Contains(t, serr.Message, "7 seconds")
	assert.Len(t, fake.Sent(), 1, "denied attempt never reaches the provider")

	now = now.Add(7 * time.Second)
	_, err = o.Send(context.Background(), req)
	require.NoError(t, err, "window elapsed")
}

func TestSendSameNumberDifferentForms(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o, _ := newTestOrchestrator(&provider.Fake{}, &now)

	_, err := o.Send(context.Background(), core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"})
	require.NoError(t, err)

	_, err = o.Send(context.Background(), core.SendRequest{Destination: "+639171234567", SenderLabel: "A", Body: "x"})
	assert.Equal(t, core.KindCooldownActive, core.KindOf(err))
}

func TestSendRollsBackOnProviderFailure(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &provider.Fake{Err: &provider.ProviderError{
		Provider:   "fake",
		StatusCode: 400,
		Code:       21211,
		Message:    "The 'To' number is not a valid phone number.",
	}}
	recorder := &memoryRecorder{}
	o, store := newTestOrchestrator(fake, &now)
	o.Recorder = recorder

	_, err := o.Send(context.Background(), core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"})
	require.Error(t, err)

	var serr *core.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, core.KindProviderRejected, serr.Kind)
	assert.Equal(t, core.SubkindInvalidNumber, serr.Subkind)
	assert.NotContains(t, serr.Message, "'To'")
	assert.Equal(t, 0, store.Len(), "reservation released")

	require.Len(t, recorder.records, 1)
	assert.Equal(t, core.SendStatusRolledBack, recorder.records[0].Status)
	assert.Equal(t, string(core.KindProviderRejected), recorder.records[0].ErrorCode)

	fake.Err = nil
	_, err = o.Send(context.Background(), core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"})
	require.NoError(t, err, "immediate retry is allowed after rollback")
}

func TestSendTransportFailureIsUnavailable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o, store := newTestOrchestrator(&provider.Fake{Err: context.DeadlineExceeded}, &now)

	_, err := o.Send(context.Background(), core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"})
	assert.Equal(t, core.KindProviderUnavailable, core.KindOf(err))
	assert.Equal(t, 0, store.Len())
}

func TestSendValidation(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  core.SendRequest
		kind core.ErrorKind
	}{
		{"missing phone", core.SendRequest{SenderLabel: "A", Body: "x"}, core.KindMissingParameter},
		{"blank body", core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "  "}, core.KindMissingParameter},
		{"bad number", core.SendRequest{Destination: "12345", SenderLabel: "A", Body: "x"}, core.KindInvalidFormat},
		{"long body", core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: strings.Repeat("a", 161)}, core.KindMessageTooLong},
		{"long sender", core.SendRequest{Destination: "09171234567", SenderLabel: "ABCDEFGHIJKL", Body: "x"}, core.KindSenderTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &provider.Fake{}
			o, store := newTestOrchestrator(fake, &now)

			_, err := o.Send(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
			assert.Empty(t, fake.Sent())
			assert.Equal(t, 0, store.Len(), "rejected input never reserves")
		})
	}
}

func TestSendRecorderFailureDoesNotFailSend(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o, _ := newTestOrchestrator(&provider.Fake{}, &now)
	o.Recorder = &memoryRecorder{err: errors.New("disk full")}

	_, err := o.Send(context.Background(), core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"})
	require.NoError(t, err)
}

func TestSendInFlightKeepsSlotReserved(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gw := &blockingGateway{entered: make(chan struct{}, 1), release: make(chan struct{})}
	o, _ := newTestOrchestrator(gw, &now)

	req := core.SendRequest{Destination: "09171234567", SenderLabel: "A", Body: "x"}

	done := make(chan error, 1)
	go func() {
		_, err := o.Send(context.Background(), req)
		done <- err
	}()

	<-gw.entered
	_, err := o.Send(context.Background(), req)
	assert.Equal(t, core.KindCooldownActive, core.KindOf(err))

	close(gw.release)
	require.NoError(t, <-done)
}

// cancelAwareGateway blocks until released or until its context ends.
type cancelAwareGateway struct {
	entered chan struct{}
	release chan struct{}
	sent    int
}

func (g *cancelAwareGateway) Send(ctx context.Context, msg provider.Message) (*provider.Receipt, error) {
	g.sent++
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return &provider.Receipt{MessageID: "SMdetached", Status: "queued"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *cancelAwareGateway) Name() string { return "cancel-aware" }

func TestSendSurvivesCallerCancellation(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gw := &cancelAwareGateway{entered: make(chan struct{}), release: make(chan struct{})}
	o, store := newTestOrchestrator(gw, &now)

	ctx, cancel := context.WithCancel(context.Background())
	req := core.SendRequest{Destination: "09171234567", SenderLabel: "ACME", Body: "Hi"}

	type outcome struct {
		result *core.SendResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := o.Send(ctx, req)
		done <- outcome{result, err}
	}()

	<-gw.entered
	cancel()
	close(gw.release)

	got := <-done
	require.NoError(t, got.err, "caller going away does not cancel the provider call")
	assert.Equal(t, "SMdetached", got.result.MessageID)
	assert.Equal(t, 1, store.Len(), "reservation is kept")

	_, err := o.Send(context.Background(), req)
	var serr *core.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, core.KindCooldownActive, serr.Kind)
	assert.Equal(t, 1, gw.sent, "no second message reaches the provider")
}

func TestDefaultClockIsMonotonic(t *testing.T) {
	o := &Orchestrator{}
	assert.Contains(t, o.now().String(), "m=", "default clock keeps the monotonic reading")
}

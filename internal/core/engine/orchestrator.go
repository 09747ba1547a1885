package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smsgate/smsgate/internal/core"
	"github.com/smsgate/smsgate/internal/core/cooldown"
	"github.com/smsgate/smsgate/internal/core/phone"
	"github.com/smsgate/smsgate/internal/metrics"
	"github.com/smsgate/smsgate/internal/observability"
	"github.com/smsgate/smsgate/internal/provider"
)

const logPreviewLength = 50

// Reserver is the cooldown admission control used by the orchestrator.
type Reserver interface {
	CheckAndReserve(destination string, now time.Time) cooldown.Decision
	Rollback(destination string)
}

// Recorder persists the outcome of send attempts.
type Recorder interface {
	RecordSend(ctx context.Context, record *core.SendRecord) error
}

// Orchestrator runs one send attempt through validation, cooldown admission
// and the provider call, reconciling the reservation with the outcome.
type Orchestrator struct {
	Validator phone.Validator
	Cooldown  Reserver
	Gateway   provider.Gateway
	From      string
	Recorder  Recorder
	Clock     func() time.Time
}

// Send delivers req. The cooldown slot is reserved before the provider is
// called and released only when the provider fails, so concurrent requests
// for the same destination see the slot as taken while a call is in flight.
//
// Once the slot is reserved the provider call is detached from ctx
// cancellation: a caller that goes away must not roll back a message the
// provider may already have accepted. The gateway's own timeout bounds it.
func (o *Orchestrator) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	if missing := missingFields(req); len(missing) > 0 {
		return nil, o.reject(ctx, req, "", core.NewMissingParameter(missing...))
	}

	recipient, err := o.Validator.Normalize(req.Destination)
	if err != nil {
		return nil, o.reject(ctx, req, "", err)
	}
	if err := o.Validator.ValidateMessage(req.SenderLabel, req.Body); err != nil {
		return nil, o.reject(ctx, req, recipient, err)
	}

	decision := o.Cooldown.CheckAndReserve(recipient, o.now())
	if !decision.Allowed {
		metrics.RecordCooldownRejection()
		return nil, o.reject(ctx, req, recipient, core.NewCooldownActive(decision.RemainingSeconds))
	}

	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	receipt, err := o.Gateway.Send(ctx, provider.Message{
		To:   recipient,
		From: o.From,
		Body: req.Body,
	})
	elapsed := time.Since(start)

	if err != nil {
		o.Cooldown.Rollback(recipient)
		serr := provider.Classify(err)
		metrics.RecordProviderCall(o.Gateway.Name(), elapsed, string(serr.Subkind))
		metrics.RecordSendAttempt(string(core.SendStatusRolledBack), string(serr.Kind))

		o.logOutcome(req, recipient, "",
			zap.String("error_code", string(serr.Kind)),
			zap.String("subkind", string(serr.Subkind)),
			zap.Error(err),
		)
		o.record(ctx, req, recipient, core.SendStatusRolledBack, "", string(serr.Kind))
		return nil, serr
	}

	metrics.RecordProviderCall(o.Gateway.Name(), elapsed, "")
	metrics.RecordSendAttempt(string(core.SendStatusCommitted), "")

	result := &core.SendResult{
		MessageID: receipt.MessageID,
		Recipient: recipient,
		Sender:    req.SenderLabel,
		Status:    receipt.Status,
		Timestamp: receipt.AcceptedAt,
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = o.now()
	}

	o.logOutcome(req, recipient, result.MessageID, zap.Duration("provider_duration", elapsed))
	o.record(ctx, req, recipient, core.SendStatusCommitted, result.MessageID, "")
	return result, nil
}

// reject handles attempts that never reached the provider.
func (o *Orchestrator) reject(ctx context.Context, req core.SendRequest, recipient string, err error) error {
	kind := core.KindOf(err)
	metrics.RecordSendAttempt(string(core.SendStatusRejected), string(kind))

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("SMS rejected",
			zap.String("request_id", req.RequestID),
			zap.String("destination", destinationForLog(req, recipient)),
			zap.String("error_code", string(kind)),
		)
	}
	return err
}

func (o *Orchestrator) logOutcome(req core.SendRequest, recipient, messageID string, fields ...zap.Field) {
	if observability.ServerLogger == nil {
		return
	}

	base := []zap.Field{
		zap.String("request_id", req.RequestID),
		zap.String("destination", recipient),
		zap.String("sender", req.SenderLabel),
		zap.String("body", core.Preview(req.Body, logPreviewLength)),
		zap.Time("timestamp", o.now()),
	}
	if messageID != "" {
		base = append(base, zap.String("message_id", messageID))
		observability.ServerLogger.Info("SMS sent", append(base, fields...)...)
		return
	}
	observability.ServerLogger.Warn("SMS send failed", append(base, fields...)...)
}

// record writes the audit entry. Failures are logged and never surface to the caller.
func (o *Orchestrator) record(ctx context.Context, req core.SendRequest, recipient string, status core.SendStatus, messageID, errorCode string) {
	if o.Recorder == nil {
		return
	}

	rec := &core.SendRecord{
		ID:          uuid.NewString(),
		RequestID:   req.RequestID,
		Recipient:   recipient,
		Sender:      req.SenderLabel,
		BodyPreview: core.Preview(req.Body, logPreviewLength),
		Status:      status,
		MessageID:   messageID,
		ErrorCode:   errorCode,
		CreatedAt:   o.now(),
	}
	if err := o.Recorder.RecordSend(ctx, rec); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to record send attempt",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
	}
}

func missingFields(req core.SendRequest) []string {
	var missing []string
	if strings.TrimSpace(req.Destination) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(req.SenderLabel) == "" {
		missing = append(missing, "sender")
	}
	if strings.TrimSpace(req.Body) == "" {
		missing = append(missing, "text")
	}
	return missing
}

func destinationForLog(req core.SendRequest, recipient string) string {
	if recipient != "" {
		return recipient
	}
	return strings.TrimSpace(req.Destination)
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

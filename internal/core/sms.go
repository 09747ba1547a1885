package core

import "time"

// SendRequest is a single inbound request to deliver an SMS.
type SendRequest struct {
	Destination string `json:"destination"`
	SenderLabel string `json:"sender"`
	Body        string `json:"body"`

	// RequestID correlates the attempt across logs and the audit log.
	RequestID string `json:"request_id,omitempty"`
}

// SendResult describes an attempt the provider accepted.
type SendResult struct {
	MessageID string    `json:"messageId"`
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SendStatus is the terminal state of an orchestrated attempt.
type SendStatus string

const (
	SendStatusCommitted  SendStatus = "committed"
	SendStatusRolledBack SendStatus = "rolled_back"
	SendStatusRejected   SendStatus = "rejected"
)

// SendRecord is the audit view of one attempt that reached the provider.
type SendRecord struct {
	ID          string     `json:"id" yaml:"id"`
	RequestID   string     `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Recipient   string     `json:"recipient" yaml:"recipient"`
	Sender      string     `json:"sender" yaml:"sender"`
	BodyPreview string     `json:"body_preview" yaml:"body_preview"`
	Status      SendStatus `json:"status" yaml:"status"`
	MessageID   string     `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
}

// Preview truncates s to at most n runes, appending an ellipsis when cut.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

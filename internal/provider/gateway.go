// Package provider defines the outbound SMS gateway contract and its
// implementations.
package provider

import (
	"context"
	"time"
)

// Message is the payload handed to the provider.
type Message struct {
	To   string
	From string
	Body string
}

// Receipt is returned when the provider accepts a message.
type Receipt struct {
	MessageID  string
	Status     string
	AcceptedAt time.Time
}

// Gateway delivers a message to the provider. Implementations return a
// *ProviderError for structured rejections and plain errors for transport
// failures.
type Gateway interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
	Name() string
}

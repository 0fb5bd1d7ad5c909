// Package notify publishes order completion notices to downstream consumers.
package notify

import (
	"context"
	"time"

	"github.com/forgemedia/portal/internal/portal"
)

// Message is the payload published when an order finishes transcription.
type Message struct {
	OrderID     string             `json:"order_id"`
	ClientID    string             `json:"client_id"`
	ServiceType portal.ServiceType `json:"service_type"`
	Handle      string             `json:"transcription_handle,omitempty"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Notifier delivers completion messages. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NoOp discards every message.
type NoOp struct{}

// Notify implements Notifier.
func (NoOp) Notify(context.Context, Message) error { return nil }

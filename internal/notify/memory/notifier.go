// Package memory contains an in-memory Notifier for tests and local wiring.
package memory

import (
	"context"
	"sync"

	"github.com/forgemedia/portal/internal/notify"
)

// Notifier records every delivered message for inspection.
type Notifier struct {
	mu       sync.RWMutex
	messages []notify.Message
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records the message.
func (n *Notifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

// Messages returns the recorded deliveries.
func (n *Notifier) Messages() []notify.Message {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]notify.Message, len(n.messages))
	copy(out, n.messages)
	return out
}

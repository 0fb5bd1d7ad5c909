// Package pubsub implements a Google Cloud Pub/Sub completion notifier.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/forgemedia/portal/internal/notify"
)

// Notifier publishes completion messages to a single Pub/Sub topic.
type Notifier struct {
	topic *pubsub.Topic
}

// New wraps an existing topic handle. The caller owns the underlying client.
func New(topic *pubsub.Topic) *Notifier {
	return &Notifier{topic: topic}
}

// Notify marshals the message to JSON and publishes it, blocking until the
// server acknowledges the publish.
func (n *Notifier) Notify(ctx context.Context, msg notify.Message) error {
	if n.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"order_id": msg.OrderID},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

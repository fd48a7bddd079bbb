// Package pubsub implements a Google Cloud Pub/Sub notifier.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/pricewatch/internal/notify"
)

// Notifier publishes notifications to a Pub/Sub topic.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates a Notifier for the given project and topic.
func New(ctx context.Context, projectID, topicID string) (*Notifier, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{client: client, topic: client.Topic(topicID)}, nil
}

// Send marshals the notification to JSON and publishes it, blocking
// until the server acknowledges the message.
func (n *Notifier) Send(ctx context.Context, msg notify.Notification) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"reason":      msg.Reason,
			"product_key": msg.ProductKey,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close flushes the topic and releases the client.
func (n *Notifier) Close() error {
	if n.topic != nil {
		n.topic.Stop()
	}
	if n.client != nil {
		return n.client.Close()
	}
	return nil
}

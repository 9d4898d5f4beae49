// Package pubsub implements a Google Cloud Pub/Sub publisher for scrape
// completion events.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher wraps a Pub/Sub client and resolves topics by name.
type Publisher struct {
	client *pubsub.Client
}

// New creates a Publisher over an existing client.
func New(client *pubsub.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish marshals the payload to JSON and publishes it, blocking until the
// server has acknowledged the message.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("pubsub client is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	result := p.client.Topic(topic).Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

// Package queue publishes admitted webhook events to the durable stream.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	natsclient "github.com/hooklog/hooklog/internal/messaging/nats"
	"github.com/hooklog/hooklog/internal/models"
)

// Publisher writes queued messages to the WEBHOOK_EVENTS stream. Enqueue
// waits for the stream's PubAck: either the message is durably accepted or
// the call fails, there is no partial enqueue.
type Publisher struct {
	js      *natsclient.JetStreamClient
	subject string
	timeout time.Duration
}

// NewPublisher ensures the events stream exists and returns a publisher.
func NewPublisher(ctx context.Context, js *natsclient.JetStreamClient, timeout time.Duration) (*Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	if _, err := js.CreateOrUpdateStream(ctx, natsclient.WebhookEventsStream); err != nil {
		return nil, fmt.Errorf("create events stream: %w", err)
	}

	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Publisher{
		js:      js,
		subject: natsclient.SubjectEventReceived,
		timeout: timeout,
	}, nil
}

// Enqueue publishes the message and waits for stream acknowledgment within
// the publish timeout. A timeout fails fast so the handler never hangs the
// sender.
func (p *Publisher) Enqueue(ctx context.Context, msg *models.QueuedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.js.PublishSync(pubCtx, p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	return nil
}

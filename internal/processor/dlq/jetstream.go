// Package dlq routes poison messages to a JetStream dead-letter stream.
// Safe for use across multiple processor instances.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	natsclient "github.com/hooklog/hooklog/internal/messaging/nats"
)

// FailedMessage captures a permanently rejected queue message for later
// analysis or replay.
type FailedMessage struct {
	Timestamp time.Time       `json:"timestamp"`
	Message   json.RawMessage `json:"message"`
	Error     string          `json:"error"`
	Reason    string          `json:"reason"`
}

// Writer is the DLQ contract used by the batch processor. A nil
// implementation is valid and discards nothing silently: callers log the
// rejection regardless.
type Writer interface {
	Write(ctx context.Context, raw []byte, cause error, reason string) error
}

// JetStreamQueue writes poison messages to NATS JetStream.
type JetStreamQueue struct {
	js      *natsclient.JetStreamClient
	stream  jetstream.Stream
	written uint64
}

// NewJetStreamQueue creates a DLQ backed by NATS JetStream.
func NewJetStreamQueue(ctx context.Context, js *natsclient.JetStreamClient) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, natsclient.WebhookDLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	log.Printf("DLQ: JetStream stream %s ready", natsclient.WebhookDLQStream.Name)

	return &JetStreamQueue{
		js:     js,
		stream: stream,
	}, nil
}

// Write records a poison message in the DLQ.
func (q *JetStreamQueue) Write(ctx context.Context, raw []byte, cause error, reason string) error {
	if q == nil {
		return nil
	}

	failed := FailedMessage{
		Timestamp: time.Now().UTC(),
		Message:   json.RawMessage(raw),
		Error:     cause.Error(),
		Reason:    reason,
	}

	data, marshalErr := json.Marshal(failed)
	if marshalErr != nil {
		// Raw body may not be valid JSON; fall back to a string field.
		failed.Message = nil
		fallback := struct {
			FailedMessage
			RawMessage string `json:"raw_message"`
		}{FailedMessage: failed, RawMessage: string(raw)}
		data, marshalErr = json.Marshal(fallback)
		if marshalErr != nil {
			log.Printf("ERROR: failed to marshal DLQ entry: %v", marshalErr)
			return marshalErr
		}
	}

	// Subject format: webhook.dlq.<reason>
	subject := fmt.Sprintf("%s.%s", natsclient.SubjectDLQPrefix, reason)

	if _, pubErr := q.js.PublishSync(ctx, subject, data); pubErr != nil {
		log.Printf("ERROR: failed to publish DLQ entry: %v", pubErr)
		return pubErr
	}

	atomic.AddUint64(&q.written, 1)
	return nil
}

// List returns failed messages from the JetStream DLQ.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]FailedMessage, error) {
	if q == nil {
		return nil, fmt.Errorf("dlq not enabled")
	}

	if limit <= 0 {
		limit = 100
	}

	// Create an ephemeral consumer to read messages
	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: natsclient.SubjectDLQPrefix + ".>",
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	var out []FailedMessage
	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	for msg := range msgs.Messages() {
		var failed FailedMessage
		if err := json.Unmarshal(msg.Data(), &failed); err != nil {
			log.Printf("ERROR: failed to parse DLQ message: %v", err)
			continue
		}
		out = append(out, failed)
	}

	if msgs.Error() != nil {
		log.Printf("WARN: fetch completed with error: %v", msgs.Error())
	}

	return out, nil
}

// Purge removes all messages from the DLQ stream.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("dlq not enabled")
	}

	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}

	log.Printf("DLQ: purged all messages from stream")
	return nil
}

// Stats returns DLQ counters from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{"enabled": false}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		return map[string]interface{}{
			"enabled":       true,
			"written_local": atomic.LoadUint64(&q.written),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"written_local":  atomic.LoadUint64(&q.written),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
	}
}

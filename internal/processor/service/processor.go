package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hooklog/hooklog/internal/logging"
	"github.com/hooklog/hooklog/internal/models"
	"github.com/hooklog/hooklog/internal/processor/dlq"
	"github.com/hooklog/hooklog/internal/processor/metrics"
	"github.com/hooklog/hooklog/internal/store"
)

// Message is one independently acknowledgeable queue delivery.
// jetstream.Msg satisfies this interface.
type Message interface {
	// Data returns the raw message body.
	Data() []byte

	// Ack confirms successful processing; the message is removed from the
	// queue and never redelivered.
	Ack() error

	// Term permanently rejects the message; it is never redelivered.
	Term() error
}

// Store is the idempotent write contract the processor depends on.
type Store interface {
	UpsertIfAbsent(ctx context.Context, rec *models.LogRecord) (store.WriteResult, error)
}

// BatchResult summarizes the independent per-message outcomes of one batch.
type BatchResult struct {
	Persisted  int
	Duplicates int
	Poisoned   int
	Retried    int
}

// Processor consumes queued webhook events and persists them. It is
// stateless across delivery attempts: transient failures are retried only
// through queue redelivery, never in-process.
type Processor struct {
	store  Store
	dlq    dlq.Writer
	logger *logging.Logger
	now    func() time.Time
}

// NewProcessor creates a batch processor. dlqWriter may be nil, in which
// case poison messages are terminated with a log entry only.
func NewProcessor(st Store, dlqWriter dlq.Writer, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		store:  st,
		dlq:    dlqWriter,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProcessBatch handles each message of the batch independently: one
// message's failure never blocks acknowledgment of the others.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []Message) BatchResult {
	var res BatchResult
	for _, m := range msgs {
		p.processOne(ctx, m, &res)
	}

	metrics.BatchesTotal.Inc()
	metrics.BatchSize.Observe(float64(len(msgs)))

	p.logger.InfoContext(ctx, "Batch complete",
		"persisted", res.Persisted,
		"duplicates", res.Duplicates,
		"poisoned", res.Poisoned,
		"retried", res.Retried,
	)

	return res
}

func (p *Processor) processOne(ctx context.Context, m Message, res *BatchResult) {
	raw := m.Data()

	var msg models.QueuedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		p.reject(ctx, m, raw, fmt.Errorf("unmarshal message: %w", err), "malformed_json")
		res.Poisoned++
		return
	}
	if err := msg.Validate(); err != nil {
		p.reject(ctx, m, raw, err, "invalid_shape")
		res.Poisoned++
		return
	}

	processedAt := p.now()
	rec := &models.LogRecord{
		LogID:       msg.LogID,
		ReceivedAt:  msg.ReceivedAt,
		EventType:   msg.EventType,
		Payload:     msg.Payload,
		Signature:   msg.Signature,
		ProcessedAt: &processedAt,
	}

	start := time.Now()
	result, err := p.store.UpsertIfAbsent(ctx, rec)
	metrics.StoreDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Transient storage failure: withhold the ack so the visibility
		// window expires and the queue redelivers. No in-process retry.
		metrics.StoreErrors.Inc()
		metrics.MessagesTotal.WithLabelValues(metrics.OutcomeRetry).Inc()
		p.logger.WarnContext(ctx, "Storage write failed, message left for redelivery",
			logging.LogID(msg.LogID),
			logging.Error(err),
		)
		res.Retried++
		return
	}

	// Ack strictly after the write is confirmed durable.
	if err := m.Ack(); err != nil {
		// The write succeeded; a redelivery will be absorbed by the
		// idempotent upsert.
		p.logger.WarnContext(ctx, "Failed to ack message after write",
			logging.LogID(msg.LogID),
			logging.Error(err),
		)
	}

	switch result {
	case store.WriteAlreadyExisted:
		metrics.MessagesTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		p.logger.DebugContext(ctx, "Duplicate delivery absorbed",
			logging.LogID(msg.LogID),
		)
		res.Duplicates++
	default:
		metrics.MessagesTotal.WithLabelValues(metrics.OutcomePersisted).Inc()
		p.logger.InfoContext(ctx, "Webhook event persisted",
			logging.LogID(msg.LogID),
			logging.EventType(msg.EventType),
		)
		res.Persisted++
	}
}

// reject terminates a poison message. Redelivery cannot fix malformed data,
// so the message is routed to the DLQ and permanently removed.
func (p *Processor) reject(ctx context.Context, m Message, raw []byte, cause error, reason string) {
	metrics.MessagesTotal.WithLabelValues(metrics.OutcomePoison).Inc()
	p.logger.ErrorContext(ctx, "Poison message rejected",
		logging.Reason(reason),
		logging.Error(cause),
	)

	if p.dlq != nil {
		if err := p.dlq.Write(ctx, raw, cause, reason); err != nil {
			p.logger.ErrorContext(ctx, "Failed to write DLQ entry",
				logging.Error(err),
			)
		} else {
			metrics.DLQWritten.Inc()
		}
	}

	if err := m.Term(); err != nil {
		p.logger.WarnContext(ctx, "Failed to terminate poison message",
			logging.Error(err),
		)
	}
}

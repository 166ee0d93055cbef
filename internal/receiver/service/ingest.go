package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hooklog/hooklog/internal/logging"
	"github.com/hooklog/hooklog/internal/models"
	"github.com/hooklog/hooklog/internal/receiver/metrics"
	"github.com/hooklog/hooklog/internal/signature"
)

// Admission error taxonomy. Invalid signature and invalid payload are
// sender errors resolved at the boundary; enqueue failure is transient
// infrastructure, the sender retries per normal HTTP semantics.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPayload   = errors.New("invalid JSON payload")
	ErrEnqueueFailed    = errors.New("failed to enqueue message")
)

// Enqueuer abstracts the durable queue for the admission path.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg *models.QueuedMessage) error
}

// Service performs signature-verified admission of webhook events. It never
// touches storage; its only side effect on success is a single enqueue.
type Service struct {
	secret []byte
	queue  Enqueuer
	logger *logging.Logger
	now    func() time.Time
}

// New creates an admission service. The secret is fixed for the process
// lifetime.
func New(secret []byte, queue Enqueuer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		secret: secret,
		queue:  queue,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ingest verifies the signature over the raw body bytes, admits the event,
// and enqueues it. The returned log_id is generated exactly once per
// admitted request; no log_id exists for rejected requests.
func (s *Service) Ingest(ctx context.Context, body []byte, sigHeader string) (string, error) {
	if !signature.Verify(body, sigHeader, s.secret) {
		metrics.InvalidSignatures.Inc()
		s.logger.WarnContext(ctx, "Invalid webhook signature")
		return "", ErrInvalidSignature
	}

	// Only event_type is pulled out of the payload; the rest stays opaque.
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	eventType := envelope.EventType
	if eventType == "" {
		eventType = "unknown"
	}

	logID := uuid.New().String()
	msg := &models.QueuedMessage{
		LogID:      logID,
		ReceivedAt: s.now(),
		EventType:  eventType,
		Payload:    json.RawMessage(body),
		Signature:  sigHeader,
	}

	start := time.Now()
	err := s.queue.Enqueue(ctx, msg)
	metrics.EnqueueDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EnqueueErrors.Inc()
		s.logger.ErrorContext(ctx, "Failed to enqueue webhook event",
			logging.LogID(logID),
			logging.Error(err),
		)
		return "", fmt.Errorf("%w: %s", ErrEnqueueFailed, err)
	}

	metrics.RequestBytesTotal.Add(float64(len(body)))
	s.logger.InfoContext(ctx, "Webhook accepted",
		logging.LogID(logID),
		logging.EventType(eventType),
	)

	return logID, nil
}

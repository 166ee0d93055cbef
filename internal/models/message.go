package models

import (
	"encoding/json"
	"errors"
	"time"
)

// QueuedMessage is the queue wire contract between the receiver and the
// processor. LogID is generated exactly once at admission and is the sole
// idempotency key for storage.
type QueuedMessage struct {
	LogID      string          `json:"log_id"`
	ReceivedAt time.Time       `json:"received_at"`
	EventType  string          `json:"event_type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Signature  string          `json:"signature,omitempty"`
}

var (
	ErrMissingLogID      = errors.New("message missing log_id")
	ErrMissingReceivedAt = errors.New("message missing received_at")
)

// Validate checks the structural shape required for persistence. A message
// failing validation is poison: redelivery cannot fix it.
func (m *QueuedMessage) Validate() error {
	if m.LogID == "" {
		return ErrMissingLogID
	}
	if m.ReceivedAt.IsZero() {
		return ErrMissingReceivedAt
	}
	return nil
}

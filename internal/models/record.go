package models

import (
	"encoding/json"
	"time"
)

// LogRecord is the persisted form of an admitted webhook event, keyed by
// LogID. ProcessedAt is nil until the processor has durably written the
// record; once set it is never mutated.
type LogRecord struct {
	LogID       string          `json:"log_id"`
	ReceivedAt  time.Time       `json:"received_at"`
	EventType   string          `json:"event_type,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Signature   string          `json:"signature,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

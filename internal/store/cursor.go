package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor marks a keyset pagination position in the received_at ordering.
// Clients treat the encoded form as opaque.
type Cursor struct {
	ReceivedAt time.Time `json:"received_at"`
	LogID      string    `json:"log_id"`
}

// Encode serializes the cursor to an opaque URL-safe token.
func (c *Cursor) Encode() string {
	if c == nil {
		return ""
	}
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by Encode. An empty token yields a
// nil cursor (start from the newest record).
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	return &c, nil
}

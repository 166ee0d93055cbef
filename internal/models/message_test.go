package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedMessageValidate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		msg     QueuedMessage
		wantErr error
	}{
		{
			name: "valid",
			msg: QueuedMessage{
				LogID:      "5f1b9350-3a7d-4a3f-9b63-1d2d0df6a001",
				ReceivedAt: now,
				EventType:  "payment.success",
				Payload:    json.RawMessage(`{"amount":100}`),
			},
		},
		{
			name:    "missing log_id",
			msg:     QueuedMessage{ReceivedAt: now},
			wantErr: ErrMissingLogID,
		},
		{
			name:    "missing received_at",
			msg:     QueuedMessage{LogID: "abc"},
			wantErr: ErrMissingReceivedAt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQueuedMessagePayloadOpaque(t *testing.T) {
	raw := []byte(`{"log_id":"id-1","received_at":"2026-08-25T10:00:00Z","event_type":"user.created","payload":{"nested":{"deep":true}}}`)

	var msg QueuedMessage
	require.NoError(t, json.Unmarshal(raw, &msg))

	// Payload round-trips byte-for-byte, no re-serialization.
	assert.JSONEq(t, `{"nested":{"deep":true}}`, string(msg.Payload))

	out, err := json.Marshal(msg)
	require.NoError(t, err)

	var back QueuedMessage
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, msg.LogID, back.LogID)
	assert.True(t, msg.ReceivedAt.Equal(back.ReceivedAt))
}

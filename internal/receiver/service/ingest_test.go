package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklog/hooklog/internal/models"
	"github.com/hooklog/hooklog/internal/signature"
)

type fakeQueue struct {
	messages []*models.QueuedMessage
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, msg *models.QueuedMessage) error {
	if q.err != nil {
		return q.err
	}
	q.messages = append(q.messages, msg)
	return nil
}

var testSecret = []byte("test-secret")

func signedBody(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	return []byte(body), signature.Sign([]byte(body), testSecret)
}

func TestIngestValidEvent(t *testing.T) {
	queue := &fakeQueue{}
	svc := New(testSecret, queue, nil)

	body, sig := signedBody(t, `{"event_type":"payment.success","amount":100,"currency":"USD"}`)

	logID, err := svc.Ingest(context.Background(), body, sig)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(logID)
	assert.NoError(t, parseErr, "log_id must be a UUID")

	require.Len(t, queue.messages, 1)
	msg := queue.messages[0]
	assert.Equal(t, logID, msg.LogID)
	assert.Equal(t, "payment.success", msg.EventType)
	assert.Equal(t, sig, msg.Signature)
	assert.False(t, msg.ReceivedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), msg.ReceivedAt, 5*time.Second)

	// The payload is carried verbatim.
	assert.Equal(t, json.RawMessage(body), msg.Payload)
}

func TestIngestInvalidSignature(t *testing.T) {
	queue := &fakeQueue{}
	svc := New(testSecret, queue, nil)

	body := []byte(`{"event_type":"payment.success"}`)
	wrongSig := signature.Sign(body, []byte("wrong-secret"))

	_, err := svc.Ingest(context.Background(), body, wrongSig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, queue.messages, "rejected request must not enqueue")
}

func TestIngestInvalidJSON(t *testing.T) {
	queue := &fakeQueue{}
	svc := New(testSecret, queue, nil)

	// Correctly signed but not JSON.
	body, sig := signedBody(t, `not json at all`)

	_, err := svc.Ingest(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, queue.messages)
}

func TestIngestMissingEventType(t *testing.T) {
	queue := &fakeQueue{}
	svc := New(testSecret, queue, nil)

	body, sig := signedBody(t, `{"data":{"id":42}}`)

	_, err := svc.Ingest(context.Background(), body, sig)
	require.NoError(t, err)
	require.Len(t, queue.messages, 1)
	assert.Equal(t, "unknown", queue.messages[0].EventType)
}

func TestIngestEnqueueFailure(t *testing.T) {
	queue := &fakeQueue{err: errors.New("nats: connection closed")}
	svc := New(testSecret, queue, nil)

	body, sig := signedBody(t, `{"event_type":"payment.success"}`)

	logID, err := svc.Ingest(context.Background(), body, sig)
	assert.ErrorIs(t, err, ErrEnqueueFailed)
	assert.Empty(t, logID)
}

func TestIngestUniqueLogIDs(t *testing.T) {
	queue := &fakeQueue{}
	svc := New(testSecret, queue, nil)

	body, sig := signedBody(t, `{"event_type":"user.created"}`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		logID, err := svc.Ingest(context.Background(), body, sig)
		require.NoError(t, err)
		assert.False(t, seen[logID], "log_id generated twice: %s", logID)
		seen[logID] = true
	}
}

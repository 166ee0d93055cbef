package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooklog/hooklog/internal/receiver/service"
	"github.com/hooklog/hooklog/internal/signature"
)

type fakeIngest struct {
	logID string
	err   error

	gotBody []byte
	gotSig  string
	calls   int
}

func (f *fakeIngest) Ingest(ctx context.Context, body []byte, sigHeader string) (string, error) {
	f.calls++
	f.gotBody = body
	f.gotSig = sigHeader
	return f.logID, f.err
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string) (bool, error) { return false, nil }
func (denyAllLimiter) Close() error                                        { return nil }

func postWebhook(h *WebhookHandler, body []byte, sig string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if sig != "" {
		r.Header.Set(signature.Header, sig)
	}
	w := httptest.NewRecorder()
	h.HandleWebhook(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleWebhookSuccess(t *testing.T) {
	svc := &fakeIngest{logID: "5f1b9350-3a7d-4a3f-9b63-1d2d0df6a001"}
	h := NewWebhookHandler(svc, nil, 0)

	payload := []byte(`{"event_type":"payment.success","amount":100}`)
	sig := signature.Sign(payload, []byte("test-secret"))

	w := postWebhook(h, payload, sig)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "received", body["status"])
	assert.Equal(t, svc.logID, body["log_id"])

	// Handler passes the exact raw bytes and header through.
	assert.Equal(t, payload, svc.gotBody)
	assert.Equal(t, sig, svc.gotSig)
}

func TestHandleWebhookMissingSignature(t *testing.T) {
	svc := &fakeIngest{}
	h := NewWebhookHandler(svc, nil, 0)

	w := postWebhook(h, []byte(`{"event_type":"x"}`), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_signature", decodeBody(t, w)["error"])
	assert.Zero(t, svc.calls, "service must not run without a signature header")
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc := &fakeIngest{err: service.ErrInvalidSignature}
	h := NewWebhookHandler(svc, nil, 0)

	w := postWebhook(h, []byte(`{"event_type":"x"}`), "sha256=deadbeef")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_signature", decodeBody(t, w)["error"])
}

func TestHandleWebhookInvalidPayload(t *testing.T) {
	svc := &fakeIngest{err: service.ErrInvalidPayload}
	h := NewWebhookHandler(svc, nil, 0)

	w := postWebhook(h, []byte(`not json`), "sha256=deadbeef")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhookEnqueueFailure(t *testing.T) {
	svc := &fakeIngest{err: service.ErrEnqueueFailed}
	h := NewWebhookHandler(svc, nil, 0)

	w := postWebhook(h, []byte(`{"event_type":"x"}`), "sha256=deadbeef")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleWebhookMethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler(&fakeIngest{}, nil, 0)

	r := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	h.HandleWebhook(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleWebhookRateLimited(t *testing.T) {
	svc := &fakeIngest{}
	h := NewWebhookHandler(svc, denyAllLimiter{}, 0)

	w := postWebhook(h, []byte(`{"event_type":"x"}`), "sha256=deadbeef")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Zero(t, svc.calls)
}

func TestHandleWebhookBodyTooLarge(t *testing.T) {
	svc := &fakeIngest{}
	h := NewWebhookHandler(svc, nil, 16)

	big := bytes.Repeat([]byte("a"), 64)
	w := postWebhook(h, big, "sha256=deadbeef")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, svc.calls)
}

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hooklog/hooklog/internal/httputil"
	"github.com/hooklog/hooklog/internal/receiver/metrics"
	"github.com/hooklog/hooklog/internal/receiver/ratelimit"
	"github.com/hooklog/hooklog/internal/receiver/service"
	"github.com/hooklog/hooklog/internal/signature"
)

// IngestService is the admission contract the handler depends on.
type IngestService interface {
	Ingest(ctx context.Context, body []byte, sigHeader string) (string, error)
}

type WebhookHandler struct {
	service     IngestService
	limiter     ratelimit.RateLimiter
	maxBodySize int64
}

func NewWebhookHandler(svc IngestService, limiter ratelimit.RateLimiter, maxBodySize int64) *WebhookHandler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &WebhookHandler{
		service:     svc,
		limiter:     limiter,
		maxBodySize: maxBodySize,
	}
}

// HandleWebhook admits a single webhook event. It performs no storage I/O;
// on success the event has been durably enqueued and nothing more.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respond(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	clientIP := httputil.GetClientIP(r)
	allowed, err := h.limiter.Allow(r.Context(), clientIP)
	if err != nil {
		// Rate limiter trouble must not take down admission.
		allowed = true
	}
	if !allowed {
		h.respond(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	// The HMAC is computed over the exact bytes received.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respond(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		return
	}
	defer r.Body.Close()

	sigHeader := r.Header.Get(signature.Header)
	if sigHeader == "" {
		h.respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid_signature"})
		return
	}

	logID, err := h.service.Ingest(r.Context(), body, sigHeader)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		h.respond(w, http.StatusUnauthorized, map[string]string{"error": "invalid_signature"})
	case errors.Is(err, service.ErrInvalidPayload):
		h.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
	case errors.Is(err, service.ErrEnqueueFailed):
		h.respond(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue message"})
	case err != nil:
		h.respond(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	default:
		h.respond(w, http.StatusOK, map[string]string{
			"status": "received",
			"log_id": logID,
		})
	}
}

func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *WebhookHandler) respond(w http.ResponseWriter, status int, body interface{}) {
	metrics.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	httputil.WriteJSON(w, status, body)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/hooklog/hooklog/internal/httputil"
	"github.com/hooklog/hooklog/internal/logging"
	"github.com/hooklog/hooklog/internal/models"
	"github.com/hooklog/hooklog/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// LogStore is the read contract the logs API consumes.
type LogStore interface {
	QueryByFilter(ctx context.Context, eventType string, limit int, cursor *store.Cursor) ([]models.LogRecord, *store.Cursor, error)
}

// LogsResponse is the history query payload.
type LogsResponse struct {
	Logs       []models.LogRecord `json:"logs"`
	Total      int                `json:"total"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type Handler struct {
	store  LogStore
	logger *logging.Logger
}

func NewHandler(st LogStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: st, logger: logger}
}

// Logs serves GET /logs?limit=&event_type=&cursor= over the log store's
// query contract, newest first.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	limit := httputil.ParseIntParam(q.Get("limit"), defaultLimit)
	limit = httputil.ClampLimit(limit, 1, maxLimit)
	eventType := q.Get("event_type")

	cursor, err := store.DecodeCursor(q.Get("cursor"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	logs, next, err := h.store.QueryByFilter(r.Context(), eventType, limit, cursor)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Logs query failed", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if logs == nil {
		logs = []models.LogRecord{}
	}

	httputil.WriteJSON(w, http.StatusOK, LogsResponse{
		Logs:       logs,
		Total:      len(logs),
		NextCursor: next.Encode(),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

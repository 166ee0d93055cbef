package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hooklog/hooklog/internal/logsapi/handlers"
	"github.com/hooklog/hooklog/internal/middleware"
)

// NewRouter constructs a ServeMux with logs API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/logs", h.Logs)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

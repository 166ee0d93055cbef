package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook admission metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklog_receiver_requests_total",
			Help: "Total number of webhook requests received",
		},
		[]string{"status"},
	)

	RequestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_receiver_request_bytes_total",
			Help: "Total bytes of webhook payload data received",
		},
	)

	InvalidSignatures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_receiver_invalid_signatures_total",
			Help: "Total number of requests rejected for a missing or invalid signature",
		},
	)

	// Enqueue metrics
	EnqueueDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hooklog_receiver_enqueue_duration_seconds",
			Help:    "Duration of queue publish calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EnqueueErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_receiver_enqueue_errors_total",
			Help: "Total number of failed queue publish calls",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklog_receiver_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"client"},
	)
)

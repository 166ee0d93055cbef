package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch consumption metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooklog_processor_messages_total",
			Help: "Total number of queue messages processed, by outcome",
		},
		[]string{"outcome"},
	)

	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_processor_batches_total",
			Help: "Total number of batches fetched from the queue",
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hooklog_processor_batch_size",
			Help:    "Number of messages per fetched batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	// Storage metrics
	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hooklog_processor_store_duration_seconds",
			Help:    "Duration of idempotent store writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_processor_store_errors_total",
			Help: "Total number of transient storage failures",
		},
	)

	// DLQ metrics
	DLQWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooklog_processor_dlq_written_total",
			Help: "Total number of poison messages routed to the DLQ",
		},
	)
)

// Message outcome label values.
const (
	OutcomePersisted = "persisted"
	OutcomeDuplicate = "duplicate"
	OutcomePoison    = "poison"
	OutcomeRetry     = "retry"
)

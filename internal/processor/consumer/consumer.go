// Package consumer runs the pull loop feeding batches to the processor.
package consumer

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/hooklog/hooklog/internal/logging"
	"github.com/hooklog/hooklog/internal/processor/service"
)

// Consumer pulls batches of up to batchSize messages from a durable
// JetStream consumer and hands them to the processor. Messages within a
// batch are acknowledged independently; no ordering is guaranteed across
// batches.
type Consumer struct {
	consumer  jetstream.Consumer
	processor *service.Processor
	batchSize int
	fetchWait time.Duration
	logger    *logging.Logger
}

// New creates a pull consumer.
func New(c jetstream.Consumer, p *service.Processor, batchSize int, fetchWait time.Duration, logger *logging.Logger) *Consumer {
	if batchSize <= 0 {
		batchSize = 10
	}
	if fetchWait <= 0 {
		fetchWait = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{
		consumer:  c,
		processor: p,
		batchSize: batchSize,
		fetchWait: fetchWait,
		logger:    logger,
	}
}

// Run fetches and processes batches until ctx is cancelled. Fetch errors
// are transient: the loop backs off briefly and tries again.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consumer loop started",
		"batch_size", c.batchSize,
		"fetch_max_wait", c.fetchWait.String(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := c.consumer.Fetch(c.batchSize, jetstream.FetchMaxWait(c.fetchWait))
		if err != nil {
			c.logger.Warn("Fetch failed", logging.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		msgs := make([]service.Message, 0, c.batchSize)
		for msg := range batch.Messages() {
			msgs = append(msgs, msg)
		}
		if err := batch.Error(); err != nil {
			c.logger.Warn("Fetch completed with error", logging.Error(err))
		}

		if len(msgs) == 0 {
			continue
		}

		c.processor.ProcessBatch(ctx, msgs)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

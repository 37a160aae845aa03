package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// Handler processes one decoded batch. A nil error acknowledges the batch.
type Handler func(ctx context.Context, txns []model.Transaction) error

// Source is the consumer side of a stream.
type Source interface {
	ReadPending(ctx context.Context, count int64) ([]redis.XMessage, error)
	ReadNew(ctx context.Context, count int64) ([]redis.XMessage, error)
	Ack(ctx context.Context, ids ...string) error
}

// WorkerConfig controls batching.
type WorkerConfig struct {
	BatchSize int64
	// SkipMalformed acknowledges undecodable entries and processes the rest
	// of their batch. Otherwise such a batch stays pending.
	SkipMalformed bool
	// Backoff is the pause after a failed read and before pending entries
	// are retried.
	Backoff time.Duration
}

// Worker feeds stream batches to a handler. Running one worker per group
// keeps writes to the record store serialized.
type Worker struct {
	source  Source
	handler Handler
	config  WorkerConfig
}

// NewWorker creates a worker.
func NewWorker(source Source, handler Handler, config WorkerConfig) *Worker {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.Backoff <= 0 {
		config.Backoff = time.Second
	}
	return &Worker{source: source, handler: handler, config: config}
}

// Run drains this consumer's pending entries, then consumes new ones until
// ctx is canceled. After a batch fails with a retryable error, pending
// entries are retried after Backoff before any new entry is read.
func (w *Worker) Run(ctx context.Context) error {
	settled, err := w.drain(ctx)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if !settled {
			if !w.wait(ctx) {
				return nil
			}
			settled, err = w.drain(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read pending entries", "error", err)
			}
			if !settled {
				continue
			}
		}

		msgs, err := w.source.ReadNew(ctx, w.config.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to read stream", "error", err)
			if !w.wait(ctx) {
				return nil
			}
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		if _, err := w.handle(ctx, msgs); err != nil {
			slog.Error("Batch left pending", "entries", len(msgs), "error", err)
			settled = !common.IsRetryable(err)
		}
	}
}

// DrainPending reprocesses unacknowledged entries. It stops at the first
// batch that fails, which stays pending.
func (w *Worker) DrainPending(ctx context.Context) error {
	_, err := w.drain(ctx)
	return err
}

// drain reports false when it stopped at a batch whose failure is worth
// retrying. A read error leaves the pending list unsettled as well.
func (w *Worker) drain(ctx context.Context) (bool, error) {
	for {
		msgs, err := w.source.ReadPending(ctx, w.config.BatchSize)
		if err != nil {
			return false, err
		}
		if len(msgs) == 0 {
			return true, nil
		}

		slog.Info("Reprocessing pending entries", "count", len(msgs))
		acked, err := w.handle(ctx, msgs)
		if err != nil {
			slog.Error("Pending batch failed", "entries", len(msgs), "error", err)
			return !common.IsRetryable(err), nil
		}
		if acked == 0 {
			return true, nil
		}
	}
}

// wait pauses for Backoff and reports whether ctx is still live.
func (w *Worker) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.config.Backoff):
		return true
	}
}

// handle decodes, processes and acknowledges one batch, returning the number
// of acknowledged entries.
func (w *Worker) handle(ctx context.Context, msgs []redis.XMessage) (int, error) {
	txns := make([]model.Transaction, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	var rejected []string

	for _, msg := range msgs {
		txn, err := DecodeMessage(msg)
		if err != nil {
			if !w.config.SkipMalformed {
				return 0, err
			}
			slog.Warn("Skipping undecodable entry", "id", msg.ID, "error", err)
			rejected = append(rejected, msg.ID)
			continue
		}
		txns = append(txns, txn)
		ids = append(ids, msg.ID)
	}

	if len(txns) > 0 {
		if err := w.handler(ctx, txns); err != nil {
			if len(rejected) > 0 {
				if ackErr := w.source.Ack(ctx, rejected...); ackErr != nil {
					return 0, errors.Join(err, ackErr)
				}
			}
			return len(rejected), err
		}
	}

	// Processed entries are acknowledged even if ctx was canceled meanwhile.
	all := append(ids, rejected...)
	if err := w.source.Ack(context.WithoutCancel(ctx), all...); err != nil {
		return 0, err
	}
	return len(all), nil
}

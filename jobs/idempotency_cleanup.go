package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Keys older than this have long outlived any retry of their request; the
// unique constraint on transaction back-references still blocks replays.
const idempotencyRetention = 30 * 24 * time.Hour

// KeyCleaner prunes stored idempotency keys. Implemented by
// shared.IdempotencyStore.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewIdempotencyCleanupHandler builds the handler for the periodic key
// retention sweep.
func NewIdempotencyCleanupHandler(store KeyCleaner, logger *slog.Logger, runs *prometheus.CounterVec) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			if logger != nil {
				logger.Error("idempotency cleanup failed", slog.Any("error", err))
			}
			if runs != nil {
				runs.WithLabelValues(TaskIdempotencyCleanup, "error").Inc()
			}
			return err
		}
		if logger != nil {
			logger.Info("idempotency cleanup finished",
				slog.Duration("retention", idempotencyRetention))
		}
		if runs != nil {
			runs.WithLabelValues(TaskIdempotencyCleanup, "ok").Inc()
		}
		return nil
	}
}

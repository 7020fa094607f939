package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomworks-erp/loomworks-erp/internal/inventory"
)

// NewReconcileWarmupHandler builds the handler that recomputes the pending
// inventory set, refreshing the cached pending count.
func NewReconcileWarmupHandler(svc *inventory.Service, logger *slog.Logger, runs *prometheus.CounterVec) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		pending, err := svc.PendingItems(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("reconcile warmup failed", slog.Any("error", err))
			}
			if runs != nil {
				runs.WithLabelValues(TaskReconcileWarmup, "error").Inc()
			}
			return err
		}
		if logger != nil {
			logger.Info("reconcile warmup finished", slog.Int("pending", len(pending)))
		}
		if runs != nil {
			runs.WithLabelValues(TaskReconcileWarmup, "ok").Inc()
		}
		return nil
	}
}

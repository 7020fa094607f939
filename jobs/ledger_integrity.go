package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomworks-erp/loomworks-erp/internal/ledger"
)

// NewLedgerIntegrityHandler builds the handler for the nightly integrity
// sweep. Read-time repair already corrects what users see; the sweep persists
// those corrections so reports running straight off the store agree.
func NewLedgerIntegrityHandler(svc *ledger.Service, logger *slog.Logger, runs *prometheus.CounterVec) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		fixed, err := svc.RepairSweep(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("ledger integrity sweep failed",
					slog.Int("fixed", fixed), slog.Any("error", err))
			}
			if runs != nil {
				runs.WithLabelValues(TaskLedgerIntegrity, "error").Inc()
			}
			return err
		}
		if logger != nil {
			logger.Info("ledger integrity sweep finished", slog.Int("fixed", fixed))
		}
		if runs != nil {
			runs.WithLabelValues(TaskLedgerIntegrity, "ok").Inc()
		}
		return nil
	}
}

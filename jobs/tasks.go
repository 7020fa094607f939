package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity sweeps every ledger entry through the consistency
	// repair pipeline and persists corrections.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReconcileWarmup recomputes the pending inventory set so the cached
	// count stays warm.
	TaskReconcileWarmup = "inventory:reconcile_warmup"
	// TaskIdempotencyCleanup prunes processed idempotency keys past retention.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LedgerIntegrityPayload parameterises an integrity sweep.
type LedgerIntegrityPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewLedgerIntegrityTask constructs an integrity sweep task.
func NewLedgerIntegrityTask() (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// ReconcileWarmupPayload parameterises a warmup run.
type ReconcileWarmupPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewReconcileWarmupTask constructs a warmup task.
func NewReconcileWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(ReconcileWarmupPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileWarmup, data), nil
}

// IdempotencyCleanupPayload parameterises a key retention sweep.
type IdempotencyCleanupPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewIdempotencyCleanupTask constructs a retention sweep task.
func NewIdempotencyCleanupTask() (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

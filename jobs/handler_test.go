package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (e *memoryEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: task.Type()}, nil
}

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestHandlerTriggerEnqueuesTask(t *testing.T) {
	enqueuer := &memoryEnqueuer{}
	router := newJobsRouter(NewHandler(nil, enqueuer, nil))

	for path, taskType := range map[string]string{
		"/jobs/ledger-integrity": TaskLedgerIntegrity,
		"/jobs/reconcile-warmup": TaskReconcileWarmup,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusAccepted, rec.Code, path)

		var body struct {
			Task  string `json:"task"`
			ID    string `json:"id"`
			Queue string `json:"queue"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, taskType, body.Task)
		require.Equal(t, QueueDefault, body.Queue)
	}
	require.Len(t, enqueuer.tasks, 2)
}

func TestHandlerTriggerWithoutQueue(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/ledger-integrity", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerTriggerEnqueueFailure(t *testing.T) {
	enqueuer := &memoryEnqueuer{err: errors.New("redis down")}
	router := newJobsRouter(NewHandler(nil, enqueuer, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/reconcile-warmup", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerHealthWithoutInspector(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queue   string `json:"queue"`
		Pending int    `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, QueueDefault, body.Queue)
	require.Zero(t, body.Pending)
}

type memoryCleaner struct {
	olderThan []time.Duration
	err       error
}

func (c *memoryCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	c.olderThan = append(c.olderThan, olderThan)
	return c.err
}

func TestIdempotencyCleanupHandlerSweeps(t *testing.T) {
	cleaner := &memoryCleaner{}
	handler := NewIdempotencyCleanupHandler(cleaner, nil, nil)

	task, err := NewIdempotencyCleanupTask()
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []time.Duration{idempotencyRetention}, cleaner.olderThan)
}

func TestIdempotencyCleanupHandlerPropagatesErrors(t *testing.T) {
	cleaner := &memoryCleaner{err: errors.New("store offline")}
	handler := NewIdempotencyCleanupHandler(cleaner, nil, nil)

	task, err := NewIdempotencyCleanupTask()
	require.NoError(t, err)
	require.ErrorContains(t, handler(context.Background(), task), "store offline")
}

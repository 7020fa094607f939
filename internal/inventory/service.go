package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/loomworks-erp/loomworks-erp/internal/production"
)

const (
	pendingCountKey = "inventory:pending_count"
	pendingCountTTL = 5 * time.Minute
)

// EligibleSource yields the upstream records eligible for absorption.
// Implemented by the production scanner.
type EligibleSource interface {
	Eligible(ctx context.Context) (production.EligibleSet, error)
}

// Service coordinates reconciliation and import. Reconciliation is cheap to
// re-run and the UI re-runs it on every page focus, so concurrent callers are
// collapsed through singleflight.
type Service struct {
	sources  EligibleSource
	repo     Repo
	importer *Importer
	cache    *redis.Client
	logger   *slog.Logger

	group singleflight.Group
}

// NewService builds Service. The redis client may be nil; the pending count
// is then recomputed on demand.
func NewService(sources EligibleSource, repo Repo, importer *Importer, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{sources: sources, repo: repo, importer: importer, cache: cache, logger: logger}
}

// PendingItems recomputes the pending set from the current upstream and
// transaction state. Concurrent calls share one computation.
func (s *Service) PendingItems(ctx context.Context) ([]PendingItem, error) {
	resultChan := s.group.DoChan("pending", func() (any, error) {
		return s.reconcile(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]PendingItem), nil
	}
}

func (s *Service) reconcile(ctx context.Context) ([]PendingItem, error) {
	eligible, err := s.sources.Eligible(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	pending := Reconcile(eligible, existing)
	s.cachePendingCount(ctx, len(pending))
	return pending, nil
}

// Items lists the absorbed inventory items.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// PendingCount returns the cached pending count, recomputing on a cache miss.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	if s.cache != nil {
		count, err := s.cache.Get(ctx, pendingCountKey).Int()
		if err == nil {
			return count, nil
		}
		if err != redis.Nil && s.logger != nil {
			s.logger.Warn("pending count cache read failed", slog.Any("error", err))
		}
	}
	pending, err := s.PendingItems(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Import absorbs the selected sources. Selection is resolved against a fresh
// reconciliation pass, so a source that is no longer pending fails its own
// slot without touching the rest. The returned pending set is recomputed
// after the import; callers must not do their own pending-count arithmetic.
func (s *Service) Import(ctx context.Context, refs []SourceRef) (ImportResult, []PendingItem, error) {
	pending, err := s.reconcile(ctx)
	if err != nil {
		return ImportResult{}, nil, err
	}
	byRef := make(map[SourceRef]PendingItem, len(pending))
	for _, item := range pending {
		byRef[item.Source] = item
	}

	var selected []PendingItem
	var result ImportResult
	for _, ref := range refs {
		item, ok := byRef[ref]
		if !ok {
			result.Errors = append(result.Errors, AbsorptionError{Source: ref, Cause: ErrUnknownSource})
			continue
		}
		selected = append(selected, item)
	}

	imported := s.importer.Import(ctx, selected)
	result.Imported = imported.Imported
	result.Errors = append(result.Errors, imported.Errors...)

	s.invalidatePendingCount(ctx)
	after, err := s.reconcile(ctx)
	if err != nil {
		return result, nil, err
	}
	return result, after, nil
}

func (s *Service) cachePendingCount(ctx context.Context, count int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, pendingCountKey, count, pendingCountTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("pending count cache write failed", slog.Any("error", err))
	}
}

func (s *Service) invalidatePendingCount(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, pendingCountKey).Err(); err != nil && s.logger != nil {
		s.logger.Warn("pending count cache invalidation failed", slog.Any("error", err))
	}
}

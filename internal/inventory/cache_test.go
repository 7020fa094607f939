package inventory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestServicePendingCountUsesCache(t *testing.T) {
	client := newTestRedis(t)
	repo := newMemoryRepo()
	svc := serviceFixture(repo)
	svc.cache = client
	ctx := context.Background()

	// First call computes and caches.
	count, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	cached, err := client.Get(ctx, pendingCountKey).Int()
	require.NoError(t, err)
	require.Equal(t, 3, cached)

	// A stale cached value is served as-is until invalidation.
	require.NoError(t, client.Set(ctx, pendingCountKey, 42, 0).Err())
	count, err = svc.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 42, count)
}

func TestServiceImportInvalidatesAndRefreshesCount(t *testing.T) {
	client := newTestRedis(t)
	repo := newMemoryRepo()
	svc := serviceFixture(repo)
	svc.cache = client
	ctx := context.Background()

	pending, err := svc.PendingItems(ctx)
	require.NoError(t, err)

	_, _, err = svc.Import(ctx, []SourceRef{pending[0].Source})
	require.NoError(t, err)

	// The post-import reconciliation pass re-primed the cache.
	count, err := client.Get(ctx, pendingCountKey).Int()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

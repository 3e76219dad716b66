package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/fletero-erp/fletero-erp/testing"
)

type stubBalanceRepo struct {
	balances  map[int64]float64
	getCalls  int
	listCalls int
}

func (s *stubBalanceRepo) GetBalance(_ context.Context, productID int64) (Balance, error) {
	s.getCalls++
	return Balance{ProductID: productID, Qty: s.balances[productID], UpdatedAt: time.Now()}, nil
}

func (s *stubBalanceRepo) ListBalances(_ context.Context) ([]Balance, error) {
	s.listCalls++
	items := make([]Balance, 0, len(s.balances))
	for id, qty := range s.balances {
		items = append(items, Balance{ProductID: id, Qty: qty, UpdatedAt: time.Now()})
	}
	return items, nil
}

func (s *stubBalanceRepo) ListMovements(_ context.Context, _ int64, _, _ int) ([]Movement, int, error) {
	return nil, 0, nil
}

func newTestCache(t *testing.T, repo Repository) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotCache(client, repo, 30*time.Second), mr
}

func TestSnapshotCachesBalance(t *testing.T) {
	ctx := context.Background()
	repo := &stubBalanceRepo{balances: map[int64]float64{10: 42}}
	cache, mr := newTestCache(t, repo)

	snap, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float64(42), snap.StockActual)
	assert.Equal(t, 1, repo.getCalls)
	assert.True(t, mr.Exists(snapshotKey(10)))

	// Second read is served from Redis; the balance never changes this
	// side of an Invalidate.
	repo.balances[10] = 5
	snap, err = cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float64(42), snap.StockActual)
	assert.Equal(t, 1, repo.getCalls)
}

func TestSnapshotExpires(t *testing.T) {
	ctx := context.Background()
	repo := &stubBalanceRepo{balances: map[int64]float64{10: 42}}
	cache, mr := newTestCache(t, repo)

	_, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)

	repo.balances[10] = 17
	mr.FastForward(time.Minute)

	snap, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float64(17), snap.StockActual)
	assert.Equal(t, 2, repo.getCalls)
}

func TestSnapshotInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := &stubBalanceRepo{balances: map[int64]float64{10: 42, 11: 3}}
	cache, mr := newTestCache(t, repo)

	_, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	_, err = cache.Snapshot(ctx, 11)
	require.NoError(t, err)

	repo.balances[10] = 40
	cache.Invalidate(ctx, 10)
	assert.False(t, mr.Exists(snapshotKey(10)))
	assert.True(t, mr.Exists(snapshotKey(11)))

	snap, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float64(40), snap.StockActual)
}

func TestWarmPrimesAllBalances(t *testing.T) {
	ctx := context.Background()
	repo := &stubBalanceRepo{balances: map[int64]float64{10: 42, 11: 3, 12: 0}}
	cache, mr := newTestCache(t, repo)

	require.NoError(t, cache.Warm(ctx))
	assert.Equal(t, 1, repo.listCalls)
	for id := range repo.balances {
		assert.True(t, mr.Exists(snapshotKey(id)))
	}

	snap, err := cache.Snapshot(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, float64(3), snap.StockActual)
	assert.Equal(t, 0, repo.getCalls)
}

func TestSnapshotWithoutRedis(t *testing.T) {
	ctx := context.Background()
	repo := &stubBalanceRepo{balances: map[int64]float64{10: 42}}
	cache := NewSnapshotCache(nil, repo, 30*time.Second)

	snap, err := cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float64(42), snap.StockActual)

	// No backing cache, every read goes to the repository.
	_, err = cache.Snapshot(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)

	require.NoError(t, cache.Warm(ctx))
	assert.Equal(t, 0, repo.listCalls)
}

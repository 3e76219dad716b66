package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache serves advisory stock snapshots from Redis, collapsing
// concurrent loads for the same product into a single database read.
type SnapshotCache struct {
	client *redis.Client
	repo   Repository
	ttl    time.Duration
	group  singleflight.Group
}

// NewSnapshotCache instantiates the cache helper.
func NewSnapshotCache(client *redis.Client, repo Repository, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, repo: repo, ttl: ttl}
}

func snapshotKey(productID int64) string {
	return fmt.Sprintf("stock:snapshot:%d", productID)
}

// Snapshot returns the advisory quantity for a product. The value may be up
// to ttl old; mutation paths re-check the balance under a row lock.
func (c *SnapshotCache) Snapshot(ctx context.Context, productID int64) (StockSnapshot, error) {
	key := snapshotKey(productID)

	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var snap StockSnapshot
			if err := json.Unmarshal(payload, &snap); err == nil {
				return snap, nil
			}
		} else if err != redis.Nil {
			return StockSnapshot{}, fmt.Errorf("inventory: snapshot cache get: %w", err)
		}
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		balance, err := c.repo.GetBalance(ctx, productID)
		if err != nil {
			return nil, err
		}
		snap := StockSnapshot{
			ProductID:   productID,
			StockActual: balance.Qty,
			TakenAt:     time.Now().UTC(),
		}
		if c.client != nil {
			raw, err := json.Marshal(snap)
			if err != nil {
				return nil, err
			}
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				return nil, fmt.Errorf("inventory: snapshot cache set: %w", err)
			}
		}
		return snap, nil
	})
	if err != nil {
		return StockSnapshot{}, err
	}
	return result.(StockSnapshot), nil
}

// Warm primes the cache with the current balances. Run from the periodic
// refresh job so product search rarely hits Postgres.
func (c *SnapshotCache) Warm(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	balances, err := c.repo.ListBalances(ctx)
	if err != nil {
		return fmt.Errorf("inventory: warm snapshots: %w", err)
	}
	now := time.Now().UTC()
	for _, b := range balances {
		raw, err := json.Marshal(StockSnapshot{ProductID: b.ProductID, StockActual: b.Qty, TakenAt: now})
		if err != nil {
			return err
		}
		if err := c.client.Set(ctx, snapshotKey(b.ProductID), raw, c.ttl).Err(); err != nil {
			return fmt.Errorf("inventory: warm snapshots: %w", err)
		}
	}
	return nil
}

// Invalidate drops the cached snapshot after a committed stock change.
func (c *SnapshotCache) Invalidate(ctx context.Context, productIDs ...int64) {
	if c.client == nil || len(productIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, snapshotKey(id))
	}
	_ = c.client.Del(ctx, keys...).Err()
}

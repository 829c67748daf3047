// Package settlement mirrors account position state kept by
// internal/refbroker/risk to Redis, so multiple reference-adapter
// instances can share a consistent view of net positions per account
// and symbol. Grounded on the rate-limiter gateway's redis.Cmdable
// client field, which accepts either a standalone or cluster client
// without the caller needing to care which.
package settlement

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisPositionCache mirrors Checker.ApplyFill calls into a Redis hash
// per account, field per symbol. It is a cache, not a source of truth:
// refbroker's in-process risk.Checker always answers position queries
// locally, and a cache write failure is logged, never fatal to the
// fill path.
type RedisPositionCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisPositionCache builds a cache keyed under prefix (e.g.
// "goldmine:positions"). client may be a *redis.Client or
// *redis.ClusterClient.
func NewRedisPositionCache(client redis.Cmdable, prefix string) *RedisPositionCache {
	return &RedisPositionCache{client: client, prefix: prefix}
}

func (c *RedisPositionCache) key(accountID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, accountID)
}

// Set mirrors a single account/symbol net position to Redis.
func (c *RedisPositionCache) Set(ctx context.Context, accountID, symbol string, quantity int64) error {
	return c.client.HSet(ctx, c.key(accountID), symbol, quantity).Err()
}

// Get reads a single account/symbol position back from Redis. Returns
// (0, false) if nothing is cached yet, which callers should treat as
// "fall back to the in-process Checker".
func (c *RedisPositionCache) Get(ctx context.Context, accountID, symbol string) (int64, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(accountID), symbol).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	qty, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("refbroker/settlement: malformed cached position %q: %w", raw, err)
	}
	return qty, true, nil
}

// All returns every symbol -> position pair cached for accountID.
func (c *RedisPositionCache) All(ctx context.Context, accountID string) (map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.key(accountID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for symbol, v := range raw {
		qty, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[symbol] = qty
	}
	return out, nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"referral-ledger-backend/internal/common/logger"
	"referral-ledger-backend/internal/platform/redis"
)

type CacheService struct {
	redisClient redis.RedisClient
}

func NewCacheService(redisClient redis.RedisClient) *CacheService {
	return &CacheService{
		redisClient: redisClient,
	}
}

// SnapshotKey builds the cache key for a user's dashboard snapshot.
func SnapshotKey(userID int64) string {
	return fmt.Sprintf("snapshot:%d", userID)
}

// Get reads a JSON value from the cache into dest.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Set stores a JSON value in the cache.
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redisClient.Set(ctx, key, string(data), ttl).Err()
}

// Delete removes keys from the cache. Writers call this after committing so
// the next snapshot read sees the new state.
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

// GetOrSet reads key into dest, or on a miss computes the value via setter
// and stores it. The cache write is best-effort: once the setter has produced
// a value, a failing store never fails the read, it only loses the caching.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	value, err := setter()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, string(data), ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache value")
	}

	return json.Unmarshal(data, dest)
}

package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"tourstay/internal/observability"
)

// Cache is the Redis-backed key-value store. Plain cache operations
// degrade to a miss or a no-op when Redis is unreachable: caching is a
// performance optimization, not a correctness dependency. Lock
// operations are the exception and report their error to the caller,
// which decides the degraded-mode policy.
type Cache struct {
	client *redis.Client
	logger observability.Logger
}

func NewCache(client *redis.Client, logger observability.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.WithField("key", key).Warn("cache get failed: ", err)
		observability.CacheHits.WithLabelValues("error").Inc()
		return nil, false
	}
	observability.CacheHits.WithLabelValues("hit").Inc()
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.WithField("key", key).Warn("cache set failed: ", err)
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WithField("key", key).Warn("cache delete failed: ", err)
	}
}

// DeleteByPattern removes every key matching the pattern. SCAN instead of
// KEYS so a large keyspace does not block the server.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithField("pattern", pattern).Warn("cache scan failed: ", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithField("pattern", pattern).Warn("cache purge failed: ", err)
	}
}

// TryAcquireLock is an atomic set-if-not-exists. At most one caller
// observes true for a key within the TTL window. A non-nil error means
// the store itself is unreachable, not that the lock is held.
func (c *Cache) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, key, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseLock(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WithField("key", key).Warn("failed to release lock: ", err)
	}
}

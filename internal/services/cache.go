package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// projectionKeySet tracks every key the cache currently holds so
// InvalidateAll can drop all projections without a blind FLUSHALL, which
// would also wipe rider locations.
const projectionKeySet = "cache:projection_keys"

// ProjectionCache is the Redis-backed side table for the read projections.
// Strictly best effort: failures are logged and reads fall through to the
// store.
type ProjectionCache struct {
	client *redis.Client
}

func NewProjectionCache(client *redis.Client) *ProjectionCache {
	return &ProjectionCache{client: client}
}

// GetJSON loads a cached value into dest. Returns false on miss or any
// cache failure.
func (c *ProjectionCache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("cache get %s failed: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache entry %s is corrupt, dropping: %v", key, err)
		c.Invalidate(ctx, key)
		return false
	}
	return true
}

// SetJSON stores a value under key with the given TTL.
func (c *ProjectionCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache marshal %s failed: %v", key, err)
		return
	}
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, projectionKeySet, key)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

// Invalidate drops specific keys.
func (c *ProjectionCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, projectionKeySet, toInterfaces(keys)...)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache invalidate failed: %v", err)
	}
}

// InvalidateAll drops every tracked projection key. Called after any
// successful claim or status transition.
func (c *ProjectionCache) InvalidateAll(ctx context.Context) {
	keys, err := c.client.SMembers(ctx, projectionKeySet).Result()
	if err != nil {
		log.Printf("cache invalidate-all failed: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.Del(ctx, projectionKeySet)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache invalidate-all failed: %v", err)
	}
}

// Stats returns cache counters for the health endpoint.
func (c *ProjectionCache) Stats(ctx context.Context) map[string]interface{} {
	size, err := c.client.SCard(ctx, projectionKeySet).Result()
	if err != nil {
		return map[string]interface{}{"available": false}
	}
	return map[string]interface{}{
		"available": true,
		"keys":      size,
	}
}

func toInterfaces(keys []string) []interface{} {
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fitstudio/internal/model"
)

// Cache keeps Active lookups in Redis. A nil *Cache is a no-op.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache wraps a Redis client. Entries expire after ttl.
func NewCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "settings_cache").Logger(),
	}
}

func cacheKey(key string, ref model.Date) string {
	return fmt.Sprintf("settings:active:%s:%s", key, ref)
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Get returns a cached version of key for ref.
func (c *Cache) Get(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, bool) {
	if !c.enabled() {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, cacheKey(key, ref)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	var s model.VersionedSetting
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set caches s as the version of key for ref.
func (c *Cache) Set(ctx context.Context, key string, ref model.Date, s *model.VersionedSetting) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(key, ref), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Evict drops every cached reference date of key.
func (c *Cache) Evict(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("settings:active:%s:*", key), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache scan failed")
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache evict failed")
	}
}

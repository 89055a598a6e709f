// Package cache invalidates the cached notification read model kept in
// Redis by the notification REST service.
package cache

import (
	"context"
	"fmt"

	"realtime-sync/pkg/log"
)

// Deleter is the part of pkg/redis.IRedis the invalidator needs.
type Deleter interface {
	Delete(ctx context.Context, keys ...string) error
}

// RedisInvalidator deletes <prefix><userID>:<tag> for every tag.
type RedisInvalidator struct {
	redis  Deleter
	prefix string
	logger log.Logger
}

func NewRedisInvalidator(redis Deleter, prefix string, logger log.Logger) *RedisInvalidator {
	return &RedisInvalidator{redis: redis, prefix: prefix, logger: logger}
}

// Key returns the cache key for userID and tag.
func (i *RedisInvalidator) Key(userID, tag string) string {
	return fmt.Sprintf("%s%s:%s", i.prefix, userID, tag)
}

func (i *RedisInvalidator) Invalidate(ctx context.Context, userID string, tags ...string) error {
	if userID == "" || len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for _, tag := range tags {
		keys = append(keys, i.Key(userID, tag))
	}
	if err := i.redis.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate %v: %w", keys, err)
	}
	i.logger.Debugf(ctx, "cache: invalidated %v", keys)
	return nil
}

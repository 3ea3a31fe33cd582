package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache stores rendered success responses keyed by request
// fingerprint so repeat submissions are answered without touching the
// database again.
type ResponseCache interface {
	// Get returns the cached value and true on a hit. A miss is (nil, false,
	// nil); only backend failures produce an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache wraps an already-configured redis client. Callers own the
// client's lifecycle.
func NewRedisCache(client *redis.Client, logger *slog.Logger) ResponseCache {
	return &redisCache{
		client: client,
		logger: logger,
	}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		c.logger.Error("Cache lookup failed", "key", key, "error", err)
		return nil, false, err
	}

	return value, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("Cache store failed", "key", key, "error", err)
		return err
	}

	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// JSON caches JSON documents in Redis. Redis failures degrade to the loader
// so a cache outage never fails a request.
type JSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewJSON builds a JSON cache namespaced by prefix. A nil client disables
// caching.
func NewJSON(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *JSON {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSON{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Fetch decodes the cached value for key into dest, calling loader and
// storing its result on a miss.
func (c *JSON) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, c.key(key)).Bytes()
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(payload, dest); jsonErr == nil {
				return nil
			}
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("cache read", slog.String("key", c.key(key)), slog.Any("error", err))
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write", slog.String("key", c.key(key)), slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops key.
func (c *JSON) Invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache invalidate", slog.String("key", c.key(key)), slog.Any("error", err))
	}
}

func (c *JSON) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

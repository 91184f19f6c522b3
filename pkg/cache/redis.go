package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a [RedisCache].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, so several deployments can share a server.
	// Clear only removes keys under this prefix.
	Prefix string
}

// RedisCache stores entries in redis, using redis expiry for TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redis and checks the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, backendError("ping", err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value from redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendError("get", err)
	}
	return data, true, nil
}

// Set stores a value in redis. Zero ttl keeps the key until deleted.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return backendError("set", c.client.Set(ctx, c.prefix+key, data, max(ttl, 0)).Err())
}

// Delete removes a value from redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return backendError("del", c.client.Del(ctx, c.prefix+key).Err())
}

// Clear deletes every key under the configured prefix. An empty prefix
// clears the whole selected database.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.prefix == "" {
		return backendError("flushdb", c.client.FlushDB(ctx).Err())
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return backendError("del", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return backendError("scan", err)
	}
	if len(batch) > 0 {
		return backendError("del", c.client.Del(ctx, batch...).Err())
	}
	return nil
}

// Close closes the redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)

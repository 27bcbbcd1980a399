package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const DefaultRedisPrefix = "mediq:report:"

// RedisConfig holds connection settings for the shared report cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL of zero keeps entries until Redis evicts them.
	TTL time.Duration
}

// RedisCache stores reports as JSON strings in Redis so several instances
// share one cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ outbound.ReportCache = (*RedisCache)(nil)

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisCache(client *redis.Client, cfg RedisConfig) *RedisCache {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*model.Report, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, false, fmt.Errorf("decoding cached report: %w", err)
	}
	return &report, true, nil
}

func (c *RedisCache) Put(ctx context.Context, fingerprint string, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+fingerprint, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

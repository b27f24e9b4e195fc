// Package cache keeps derived previews in Redis so identical uploads are
// not rasterized twice.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// Entry is one cached preview.
type Entry struct {
	Data         []byte
	SourceWidth  int
	SourceHeight int
	Generator    string
}

// RedisCache stores entries as hashes under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, prefix: "preview:", ttl: ttl}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Get returns (nil, nil) on a miss.
func (c *RedisCache) Get(ctx context.Context, k string) (*Entry, error) {
	fields, err := c.client.HGetAll(ctx, c.key(k)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached preview: %w", err)
	}
	if len(fields) == 0 || fields["data"] == "" {
		return nil, nil
	}

	sw, _ := strconv.Atoi(fields["source_width"])
	sh, _ := strconv.Atoi(fields["source_height"])
	return &Entry{
		Data:         []byte(fields["data"]),
		SourceWidth:  sw,
		SourceHeight: sh,
		Generator:    fields["generator"],
	}, nil
}

func (c *RedisCache) Set(ctx context.Context, k string, e *Entry) error {
	key := c.key(k)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"data", e.Data,
			"source_width", e.SourceWidth,
			"source_height", e.SourceHeight,
			"generator", e.Generator,
		)
		p.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache preview: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

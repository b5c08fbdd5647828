package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares buckets between instances through Redis. Keys expire at
// the bucket's reset time, so Redis does the eviction MemoryStore never does.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. Keys are namespaced with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis parses a redis:// URL, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get returns the bucket stored under key.
func (r *RedisStore) Get(ctx context.Context, key string) (Bucket, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Bucket{}, false, nil
	}
	if err != nil {
		return Bucket{}, false, fmt.Errorf("redis get: %w", err)
	}
	b, err := decodeBucket(val)
	if err != nil {
		return Bucket{}, false, err
	}
	return b, true, nil
}

// Set stores the bucket under key until its reset time.
func (r *RedisStore) Set(ctx context.Context, key string, b Bucket) error {
	ttl := time.Until(b.ResetAt)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	if err := r.client.Set(ctx, r.prefix+key, encodeBucket(b), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// encodeBucket renders "<count>:<resetAt unix ms>".
func encodeBucket(b Bucket) string {
	return strconv.Itoa(b.Count) + ":" + strconv.FormatInt(b.ResetAt.UnixMilli(), 10)
}

func decodeBucket(s string) (Bucket, error) {
	count, reset, ok := strings.Cut(s, ":")
	if !ok {
		return Bucket{}, fmt.Errorf("malformed bucket %q", s)
	}
	n, err := strconv.Atoi(count)
	if err != nil {
		return Bucket{}, fmt.Errorf("malformed bucket count: %w", err)
	}
	ms, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("malformed bucket reset: %w", err)
	}
	return Bucket{Count: n, ResetAt: time.UnixMilli(ms)}, nil
}

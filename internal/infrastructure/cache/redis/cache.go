package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/news-classifier/internal/core/domain"
)

const keyPrefix = "pred:"

// Cache stores computed predictions keyed by text fingerprint with a fixed
// TTL. Every backend error is reported as ErrCacheUnavailable; callers
// degrade it to a miss, so a Redis outage costs latency, never correctness.
type Cache struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	onError   func()
}

type Options struct {
	TTL time.Duration
	// OpTimeout bounds a single cache operation so a slow backend cannot
	// consume the request latency budget.
	OpTimeout time.Duration
	// OnError is invoked for each Get or Put that fails against the
	// backend and is degraded by the caller.
	OnError func()
}

func New(url string, options Options) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	ttl := options.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	opTimeout := options.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}

	return &Cache{
		client:    redis.NewClient(opts),
		ttl:       ttl,
		opTimeout: opTimeout,
		onError:   options.OnError,
	}, nil
}

func (c *Cache) reportError() {
	if c.onError != nil {
		c.onError()
	}
}

func (c *Cache) Get(ctx context.Context, fingerprint string) (*domain.CachedPrediction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	key := cacheKey(fingerprint)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		c.reportError()
		return nil, false, domain.WrapError(domain.ErrCacheUnavailable, "cache get", err)
	}

	var entry domain.CachedPrediction
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupted entry: drop it and report a miss.
		slog.Warn("cache_entry_corrupted", "key", key, "error", err)
		_ = c.client.Del(ctx, key).Err()
		return nil, false, nil
	}
	return &entry, true, nil
}

func (c *Cache) Put(ctx context.Context, fingerprint string, entry *domain.CachedPrediction) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := json.Marshal(entry)
	if err != nil {
		return domain.WrapError(domain.ErrCacheUnavailable, "cache put", err)
	}
	if err := c.client.Set(ctx, cacheKey(fingerprint), raw, c.ttl).Err(); err != nil {
		c.reportError()
		return domain.WrapError(domain.ErrCacheUnavailable, "cache put", err)
	}
	return nil
}

// Flush removes every prediction entry. Scoped to the key prefix so the
// cache can share a database with other tenants.
func (c *Cache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return domain.WrapError(domain.ErrCacheUnavailable, "cache flush", err)
		}
	}
	if err := iter.Err(); err != nil {
		return domain.WrapError(domain.ErrCacheUnavailable, "cache flush", err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return domain.WrapError(domain.ErrCacheUnavailable, "cache ping", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func cacheKey(fingerprint string) string {
	return keyPrefix + fingerprint
}

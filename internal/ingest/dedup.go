package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/pkg/metrics"
)

// Deduplicator claims a message key so that redelivered events are stored once.
type Deduplicator interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisDeduplicator struct {
	client       *redis.Client
	ttl          time.Duration
	onRedisError string
	logger       logger.Logger
}

func NewRedisDeduplicator(client *redis.Client, ttl time.Duration, onRedisError string, log logger.Logger) *RedisDeduplicator {
	return &RedisDeduplicator{
		client:       client,
		ttl:          ttl,
		onRedisError: onRedisError,
		logger:       log,
	}
}

// Claim reports whether key was seen for the first time. When Redis fails the
// configured fallback decides: "allow" treats the message as new.
func (d *RedisDeduplicator) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, constants.CacheKeyPrefixIngestDedup+key, time.Now().Unix(), d.ttl).Result()
	if err == nil {
		return ok, nil
	}

	if d.onRedisError == constants.FallbackAllow {
		metrics.FallbackUsageTotal.WithLabelValues("ingest", "allow_on_error", "redis_error").Inc()
		d.logger.WarnwCtx(ctx, "Redis error during dedup check, allowing message (fallback: allow)",
			"error", err,
			"key", key,
		)
		return true, nil
	}

	metrics.FallbackUsageTotal.WithLabelValues("ingest", "deny_on_error", "redis_error").Inc()
	return false, fmt.Errorf("redis SetNX failed for %s: %w", key, err)
}

func (d *RedisDeduplicator) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, constants.CacheKeyPrefixIngestDedup+key).Err(); err != nil {
		return fmt.Errorf("redis Del failed for %s: %w", key, err)
	}
	return nil
}

// MemoryDeduplicator keeps claims in process, for single-instance setups without Redis.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduplicator) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[key]; ok && now.Sub(at) < d.ttl {
		return false, nil
	}
	d.seen[key] = now
	return true, nil
}

func (d *MemoryDeduplicator) Release(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
	return nil
}

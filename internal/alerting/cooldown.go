package alerting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"telinsights/internal/constants"
)

// CooldownTracker remembers when each configuration last triggered.
type CooldownTracker interface {
	// ShouldSkip reports whether configID triggered less than the cooldown ago.
	ShouldSkip(ctx context.Context, configID string, now time.Time) (bool, error)
	RecordTrigger(ctx context.Context, configID string, now time.Time) error
	// Clear forgets every recorded trigger.
	Clear(ctx context.Context) error
}

// MemoryCooldownTracker keeps trigger times in process; they are lost on restart.
type MemoryCooldownTracker struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

func NewMemoryCooldownTracker(cooldown time.Duration) *MemoryCooldownTracker {
	return &MemoryCooldownTracker{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

func (t *MemoryCooldownTracker) ShouldSkip(_ context.Context, configID string, now time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[configID]
	return ok && now.Sub(last) < t.cooldown, nil
}

func (t *MemoryCooldownTracker) RecordTrigger(_ context.Context, configID string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last[configID] = now
	return nil
}

func (t *MemoryCooldownTracker) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = make(map[string]time.Time)
	return nil
}

// RedisCooldownTracker shares trigger times between replicas. Keys expire
// after the cooldown so the keyspace only holds configurations in cooldown.
type RedisCooldownTracker struct {
	client   *redis.Client
	cooldown time.Duration
	prefix   string
}

func NewRedisCooldownTracker(client *redis.Client, cooldown time.Duration) *RedisCooldownTracker {
	return &RedisCooldownTracker{
		client:   client,
		cooldown: cooldown,
		prefix:   constants.CacheKeyPrefixCooldown,
	}
}

func (t *RedisCooldownTracker) ShouldSkip(ctx context.Context, configID string, now time.Time) (bool, error) {
	val, err := t.client.Get(ctx, t.prefix+configID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis GET cooldown failed: %w", err)
	}

	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, nil
	}
	return now.Sub(time.Unix(0, nanos)) < t.cooldown, nil
}

func (t *RedisCooldownTracker) RecordTrigger(ctx context.Context, configID string, now time.Time) error {
	if err := t.client.Set(ctx, t.prefix+configID, strconv.FormatInt(now.UnixNano(), 10), t.cooldown).Err(); err != nil {
		return fmt.Errorf("redis SET cooldown failed: %w", err)
	}
	return nil
}

func (t *RedisCooldownTracker) Clear(ctx context.Context) error {
	iter := t.client.Scan(ctx, 0, t.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL cooldown failed: %w", err)
	}
	return nil
}

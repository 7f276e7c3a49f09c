package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
)

const rateLimitKeyPattern = "ratelimit:user:%s"

// RedisRateLimitStore backs the rate limiter with a shared redis instance so
// multiple deployments see the same per-user window.
type RedisRateLimitStore struct {
	client       *redis.Client
	timeProvider func() time.Time
}

type RedisRateLimitStoreOpts struct {
	TimeProvider func() time.Time
}

func NewRedisRateLimitStore(client *redis.Client, opts *RedisRateLimitStoreOpts) *RedisRateLimitStore {
	timeProvider := time.Now
	if opts != nil && opts.TimeProvider != nil {
		timeProvider = opts.TimeProvider
	}
	return &RedisRateLimitStore{
		client:       client,
		timeProvider: timeProvider,
	}
}

func (s *RedisRateLimitStore) Get(ctx context.Context, userID string) (*guardrail.RateLimitEntry, error) {
	key := fmt.Sprintf(rateLimitKeyPattern, userID)

	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limit entry: %w", err)
	}

	var entry guardrail.RateLimitEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate limit entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisRateLimitStore) Set(ctx context.Context, entry *guardrail.RateLimitEntry) error {
	key := fmt.Sprintf(rateLimitKeyPattern, entry.UserID)

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit entry: %w", err)
	}

	// The key expires with the window so stale entries clean themselves up.
	ttl := entry.ResetAt.Sub(s.timeProvider())
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rate limit entry: %w", err)
	}
	return nil
}

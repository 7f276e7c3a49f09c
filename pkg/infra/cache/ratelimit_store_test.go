package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadsentry/leadsentry/pkg/guardrail"
)

func fixedClock() (func() time.Time, time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, now
}

func TestRedisRateLimitStore_SetUsesWindowTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	clock, now := fixedClock()
	store := NewRedisRateLimitStore(client, &RedisRateLimitStoreOpts{TimeProvider: clock})

	entry := &guardrail.RateLimitEntry{
		UserID:  "u1",
		Count:   1,
		ResetAt: now.Add(time.Minute),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectSet("ratelimit:user:u1", raw, time.Minute).SetVal("OK")

	require.NoError(t, store.Set(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimitStore_SetExpiredEntryGetsMinimalTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	clock, now := fixedClock()
	store := NewRedisRateLimitStore(client, &RedisRateLimitStoreOpts{TimeProvider: clock})

	entry := &guardrail.RateLimitEntry{
		UserID:  "u1",
		Count:   3,
		ResetAt: now.Add(-time.Second),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectSet("ratelimit:user:u1", raw, time.Second).SetVal("OK")

	require.NoError(t, store.Set(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimitStore_GetRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	clock, now := fixedClock()
	store := NewRedisRateLimitStore(client, &RedisRateLimitStoreOpts{TimeProvider: clock})

	entry := &guardrail.RateLimitEntry{
		UserID:  "u1",
		Count:   7,
		ResetAt: now.Add(30 * time.Second),
	}
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectGet("ratelimit:user:u1").SetVal(string(raw))

	got, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 7, got.Count)
	assert.True(t, got.ResetAt.Equal(entry.ResetAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimitStore_GetMissingKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisRateLimitStore(client, nil)

	mock.ExpectGet("ratelimit:user:missing").RedisNil()

	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimitStore_GetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisRateLimitStore(client, nil)

	mock.ExpectGet("ratelimit:user:u1").SetErr(errors.New("connection refused"))

	got, err := store.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestRedisRateLimitStore_GetCorruptPayload(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisRateLimitStore(client, nil)

	mock.ExpectGet("ratelimit:user:u1").SetVal("{not json")

	got, err := store.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.Nil(t, got)
}

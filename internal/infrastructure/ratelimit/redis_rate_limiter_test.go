package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/oidc-core/pkg/logger"
)

func newLimiter(t *testing.T, cfg Config) (*RedisRateLimiter, *time.Time) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl, err := NewRedisRateLimiter(client, cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	rl, now := newLimiter(t, Config{Limit: 3, Window: 3 * time.Second})
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		allowed, remaining, _, err := rl.Allow(ctx, "acme:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, _, retry, err := rl.Allow(ctx, "acme:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Second, retry)

	allowed, _, _, err = rl.Allow(ctx, "acme:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "buckets are per key")

	*now = now.Add(time.Second)
	allowed, _, _, err = rl.Allow(ctx, "acme:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "one token refilled after a second")
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	rl, _ := newLimiter(t, Config{Limit: 1, Window: time.Hour})
	ctx := context.Background()

	allowed, _, _, _ := rl.Allow(ctx, "k")
	require.True(t, allowed)
	allowed, _, _, _ = rl.Allow(ctx, "k")
	require.False(t, allowed)

	require.NoError(t, rl.Reset(ctx, "k"))
	allowed, _, _, err := rl.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNewRedisRateLimiter_Defaults(t *testing.T) {
	_, err := NewRedisRateLimiter(nil, Config{}, logger.NewNoopLogger())
	assert.Error(t, err)

	rl, _ := newLimiter(t, Config{})
	assert.Equal(t, DefaultConfig().Limit, rl.Limit())
}

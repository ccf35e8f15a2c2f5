// Package ratelimit provides distributed rate limiting using Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/errors"
	"github.com/turtacn/oidc-core/pkg/logger"
)

// Config holds rate limiter configuration.
type Config struct {
	// Limit is the bucket capacity, refilled evenly over Window.
	Limit     int64
	Window    time.Duration
	KeyPrefix string
}

// DefaultConfig returns default rate limiter configuration.
func DefaultConfig() Config {
	return Config{Limit: 120, Window: time.Minute, KeyPrefix: "ratelimit:"}
}

// Lua script for atomic token bucket operations. now is in milliseconds, rate in tokens per second.
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local requested = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

local elapsed = math.max(0, now - last_refill)
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
local retry_ms = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
else
    retry_ms = math.ceil((requested - tokens) / rate * 1000)
end

local full_ms = math.ceil((capacity - tokens) / rate * 1000)
redis.call('HMSET', key, 'tokens', tokens, 'last_refill', now)
redis.call('PEXPIRE', key, full_ms + 60000)

return {allowed, math.floor(tokens), retry_ms}
`

var tokenBucket = redis.NewScript(tokenBucketLuaScript)

// RedisRateLimiter implements a token bucket per key shared by every replica.
type RedisRateLimiter struct {
	client redis.UniversalClient
	config Config
	logger logger.Logger
	now    func() time.Time
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, cfg Config, log logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.ErrInvalidRequest("redis client is required")
	}
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}

	log = log.WithComponent("RateLimiter")
	log.Info(context.Background(), "redis rate limiter initialized",
		logger.Int64("limit", cfg.Limit),
		logger.Duration("window", cfg.Window))

	return &RedisRateLimiter{client: client, config: cfg, logger: log, now: time.Now}, nil
}

// Allow takes one token from the bucket of key. retryAfter is set when the request is refused.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int64, retryAfter time.Duration, err error) {
	rate := float64(rl.config.Limit) / rl.config.Window.Seconds()
	res, err := tokenBucket.Run(ctx, rl.client, []string{rl.config.KeyPrefix + key},
		rl.config.Limit, rate, 1, rl.now().UnixMilli()).Int64Slice()
	if err != nil {
		return false, 0, 0, errors.WrapError(err, constants.ErrCodeServerError, "rate limit check failed")
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected rate limit script result %v", res)
	}
	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}

// Limit returns the bucket capacity.
func (rl *RedisRateLimiter) Limit() int64 {
	return rl.config.Limit
}

// Reset drops the bucket of key.
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.client.Del(ctx, rl.config.KeyPrefix+key).Err()
}

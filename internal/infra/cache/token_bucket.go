package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"notekeeper/config"
	"notekeeper/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// takeScript refills the bucket by whole intervals, then takes one token.
// Returns {allowed, remaining, retry_after_ms}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// TokenBucket is a service.RateLimiter whose state lives in Redis, shared by every instance.
type TokenBucket struct {
	client redis.Scripter
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewTokenBucket returns nil when rate limiting is disabled.
func NewTokenBucket(cfg *config.Config, client *redis.Client) service.RateLimiter {
	if cfg.RateLimit == nil || !cfg.RateLimit.Enabled || client == nil {
		return nil
	}

	return newTokenBucket(client, *cfg.RateLimit, time.Now)
}

func newTokenBucket(client redis.Scripter, cfg config.RateLimitConfig, now func() time.Time) *TokenBucket {
	return &TokenBucket{client: client, cfg: cfg, now: now}
}

// Take consumes one token from the bucket named by key.
func (b *TokenBucket) Take(ctx context.Context, key string) (*service.RateDecision, error) {
	args := []any{
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}

	vals, err := takeScript.Run(ctx, b.client, []string{key}, args...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "token bucket script failed")
	}

	return parseDecision(vals, b.cfg.Capacity)
}

func parseDecision(vals any, limit int) (*service.RateDecision, error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return nil, errors.Errorf("unexpected token bucket result: %#v", vals)
	}

	return &service.RateDecision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      limit,
		Remaining:  asInt64(arr[1]),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}

	n, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)

	return n
}

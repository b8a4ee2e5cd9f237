package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLimiterNotConfigured = errors.New("rate_limiter_not_configured")
	ErrLimiterKeyEmpty      = errors.New("rate_limiter_key_empty")
	ErrLimiterRateInvalid   = errors.New("rate_limiter_rate_invalid")
	ErrLimiterBurstInvalid  = errors.New("rate_limiter_burst_invalid")
)

// Tokens are stored in milli-tokens because Lua numbers are truncated to
// integers on the way back to the client.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (tonumber(nowData[1]) * 1000) + math.floor(tonumber(nowData[2]) / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + math.floor(delta * rate))
  ts = now
end

local allowed = 0
if tokens >= 1000 then
  allowed = 1
  tokens = tokens - 1000
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tokens, ts}
`

var bucketScript = redis.NewScript(tokenBucketScript)

// TokenBucket is a Redis-backed token bucket shared by every replica. Redis
// TIME is the clock, so replicas with skewed clocks still agree.
type TokenBucket struct {
	client redis.UniversalClient
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.UniversalClient) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Allow takes one token from key. rate is tokens per second and burst the
// bucket size. Every error comes back with a denied result.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	denied := &RateLimitResult{Limit: burst}
	switch {
	case t == nil || t.client == nil:
		return denied, ErrLimiterNotConfigured
	case key == "":
		return denied, ErrLimiterKeyEmpty
	case rate <= 0:
		return denied, ErrLimiterRateInvalid
	case burst <= 0:
		return denied, ErrLimiterBurstInvalid
	}

	reply, err := bucketScript.Run(ctx, t.client, []string{key},
		strconv.FormatFloat(rate, 'f', -1, 64),
		burst,
		bucketTTL(rate, burst).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return denied, err
	}
	if len(reply) != 3 {
		return denied, fmt.Errorf("rate limit script returned %d values", len(reply))
	}
	allowed, milliTokens, nowMs := reply[0] == 1, reply[1], reply[2]

	res := &RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(milliTokens / 1000),
		ResetTime: time.UnixMilli(nowMs),
	}
	if !allowed {
		missing := float64(1000-milliTokens) / 1000
		res.RetryAfter = time.Duration(missing / rate * float64(time.Second))
		res.ResetTime = res.ResetTime.Add(res.RetryAfter)
	}
	return res, nil
}

// bucketTTL keeps an idle bucket around for twice the time it takes to
// refill from empty.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	return time.Duration(max(seconds, 1)) * time.Second
}

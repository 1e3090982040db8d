package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/slot-reservation/internal/config"
)

// tokenBucketScript runs the whole take-one-token step in a single Redis
// round trip. Bucket state lives in a hash and refill is derived from
// elapsed time, so idle buckets cost nothing. Returns
// {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local bucket = KEYS[1]
	local now = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill = tonumber(ARGV[3])
	local step_ms = tonumber(ARGV[4])
	local ttl = tonumber(ARGV[5])

	local state = redis.call('HMGET', bucket, 'tokens', 'refilled_ms')
	local tokens = tonumber(state[1])
	local refilled = tonumber(state[2])
	if tokens == nil or refilled == nil then
		tokens = capacity
		refilled = now
	end

	if step_ms > 0 and refill > 0 and now > refilled then
		local steps = math.floor((now - refilled) / step_ms)
		if steps > 0 then
			tokens = math.min(capacity, tokens + steps * refill)
			refilled = refilled + steps * step_ms
		end
	end

	local allowed = 0
	local wait_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		wait_ms = math.max(0, step_ms - (now - refilled))
	end

	redis.call('HMSET', bucket, 'tokens', tokens, 'refilled_ms', refilled)
	redis.call('EXPIRE', bucket, ttl)
	return { allowed, tokens, wait_ms }
`)

// NewTokenBucket rate limits requests with a Redis token bucket. The
// limiter fails open: when Redis is unreachable or returns something
// unexpected, the request passes and the problem is logged in debug mode.
// The user key segment is populated only when the limiter runs after
// JWTAuth; on sessionless routes it stays "anon" and the bucket is
// effectively scoped by IP and route.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucketKey(cfg, c)
			res, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: script failed for %s: %v", key, err)
				}
				return next(c)
			}
			allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if !allowed {
				retry := int(math.Ceil(float64(waitMs) / 1000))
				h.Set("Retry-After", strconv.Itoa(retry))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"retry_after": retry,
				})
			}
			return next(c)
		}
	}
}

// bucketKey scopes the bucket by any combination of client IP, caller
// identity and route, controlled by RATE_LIMIT_KEY_STRATEGY.
func bucketKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" {
		strategy = "ip_user_route"
	}
	parts := []string{cfg.Prefix}
	if strings.Contains(strategy, "ip") {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		parts = append(parts, "ip", ip)
	}
	if strings.Contains(strategy, "user") {
		parts = append(parts, "user", callerID(c))
	}
	if strings.Contains(strategy, "route") {
		parts = append(parts, "route", c.Request().Method+" "+c.Path())
	}
	if len(parts) == 1 {
		parts = append(parts, "ip", c.RealIP())
	}
	return strings.Join(parts, ":")
}

func callerID(c echo.Context) string {
	// The sub claim is numeric, so it comes out of JWT parsing as float64.
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}

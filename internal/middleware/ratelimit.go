package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tour-ticketing/internal/config"
)

// tokenBucketScript refills and spends one token in a single atomic
// step. Keeping the read-refill-spend cycle inside Redis means two
// requests hitting the same bucket can never interleave, which is the
// whole point of limiting checkout traffic per caller.
const tokenBucketScript = `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill = tonumber(ARGV[3])
	local interval = tonumber(ARGV[4])
	local ttl = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(state[1])
	local ts = tonumber(state[2])
	if tokens == nil or ts == nil then
		tokens = capacity
		ts = now
	end

	if interval > 0 and refill > 0 then
		local ticks = math.floor(math.max(0, now - ts) / interval)
		if ticks > 0 then
			tokens = math.min(capacity, tokens + ticks * refill)
			ts = ts + ticks * interval
		end
	end

	local allowed = 0
	local retry = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry = interval - (now - ts)
		if retry < 0 then retry = 0 end
	end

	redis.call('HMSET', key, 'tokens', tokens, 'ts', ts)
	redis.call('EXPIRE', key, ttl)
	return { allowed, tokens, retry }
`

// NewTokenBucket returns a Redis-backed token bucket limiter keyed per
// caller. It is a pass-through when disabled or when Redis is absent,
// and it fails open on Redis errors: a cache outage must not take the
// shop down with it.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	script := redis.NewScript(tokenBucketScript)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := script.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Result()
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: redis error for %s: %v", key, err)
				}
				return next(c)
			}

			arr, ok := res.([]interface{})
			if !ok || len(arr) != 3 {
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: unexpected script result for %s: %#v", key, res)
				}
				return next(c)
			}
			allowed := asInt64(arr[0]) == 1
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}

			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too many requests",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v interface{}) int64 {
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
	return 0
}

// rateKey builds the bucket key from the configured strategy. The
// default ties the bucket to ip, user and route together, so one
// aggressive client cannot starve a shared NAT address of checkouts.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := rateCallerID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

// rateCallerID renders the JWT subject set by JWTAuth. Numeric claims
// arrive as float64, so the value is formatted rather than asserted.
func rateCallerID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "anon"
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case string:
		if v != "" {
			return v
		}
		return "anon"
	default:
		return fmt.Sprint(v)
	}
}

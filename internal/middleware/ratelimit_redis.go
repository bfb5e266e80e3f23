package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateLimitScript atomically increments the counter for a key and sets the
// window expiry on the first hit. Returns the current count and remaining TTL
// in milliseconds.
var rateLimitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisRateLimitStore implements fixed window rate limiting backed by Redis,
// so limits are shared across API instances. It fails open: if Redis is
// unreachable the request is allowed with the full quota reported.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics attaches a metrics collector so fail-open events are counted.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// Allow checks if a request from the given key should be allowed.
// Returns whether the request is allowed, how many requests remain in the
// current window, and the number of seconds until the window resets when
// the request is blocked.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (allowed bool, remaining int, retryAfter int) {
	windowMillis := config.WindowDuration.Milliseconds()

	result, err := rateLimitScript.Run(ctx, s.client, []string{key}, windowMillis).Int64Slice()
	if err != nil || len(result) != 2 {
		slog.Warn("rate limit store unavailable, failing open", "error", err)
		if s.metrics != nil {
			s.metrics.IncRateLimitRedisErrors()
		}
		return true, config.RequestsPerWindow, 0
	}

	count := int(result[0])
	ttlMillis := result[1]

	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	// Blocked. PTTL can report -1 if the expiry was lost (e.g. the key was
	// recreated without one); fall back to a full window in that case.
	if ttlMillis <= 0 {
		ttlMillis = windowMillis
	}
	retryAfter = int(time.Duration(ttlMillis) * time.Millisecond / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

// Store adapts the Redis store to the RateLimitStore interface used by the
// rate limiting middleware.
func (s *RedisRateLimitStore) Store() RateLimitStore {
	return redisStoreAdapter{s: s}
}

type redisStoreAdapter struct {
	s *RedisRateLimitStore
}

func (a redisStoreAdapter) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	allowed, _, retryAfter := a.s.Allow(ctx, key, config)
	return allowed, retryAfter
}

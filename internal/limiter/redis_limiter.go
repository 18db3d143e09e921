package limiter

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a request in the current window and returns the
// count. The key expires after two windows.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window counter in Redis, so every server instance
// shares the same limit. Keys look like "ratelimit:<key>:<window number>".
type RedisLimiter struct {
	client  *redis.Client
	owned   bool // Close closes client only when the limiter created it
	limit   int64
	window  time.Duration
	now     func() time.Time
	timeout time.Duration
}

// NewRedisLimiter connects to Redis and creates a limiter for
// requestsPerSecond per key
func NewRedisLimiter(addr, password string, db int, requestsPerSecond float64) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for rate limiting: %w", err)
	}

	rl := NewRedisLimiterFromClient(client, requestsPerSecond)
	rl.owned = true
	return rl, nil
}

// NewRedisLimiterFromClient creates a limiter on an existing connection
// (for example the one the Redis catalog already holds)
func NewRedisLimiterFromClient(client *redis.Client, requestsPerSecond float64) *RedisLimiter {
	// Fractional rates get a longer window: 0.2 req/s counts one request per 5s
	window := time.Second
	if requestsPerSecond > 0 && requestsPerSecond < 1 {
		window = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &RedisLimiter{
		client:  client,
		limit:   int64(math.Ceil(requestsPerSecond * window.Seconds())),
		window:  window,
		now:     time.Now,
		timeout: 100 * time.Millisecond,
	}
}

// Allow implements Limiter.
// Redis errors fail open so an outage does not block legitimate traffic.
func (rl *RedisLimiter) Allow(key string) bool {
	windowSeconds := int64(rl.window / time.Second)
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, rl.now().Unix()/windowSeconds)

	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	count, err := fixedWindowScript.Run(ctx, rl.client, []string{windowKey}, windowSeconds*2).Int64()
	if err != nil {
		return true
	}
	return count <= rl.limit
}

// Close implements Limiter
func (rl *RedisLimiter) Close() error {
	if rl.client != nil && rl.owned {
		return rl.client.Close()
	}
	return nil
}

package limiter

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// LimiterConfig holds configuration for creating a rate limiter
type LimiterConfig struct {
	Type              string  // "memory" or "redis"
	RequestsPerSecond float64 // can be fractional, e.g. 0.2 = 1 req per 5 sec

	// Redis-specific config. RedisClient, when set, is reused instead of
	// dialing RedisAddr.
	RedisClient   *redis.Client
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewLimiter creates a rate limiter based on the configuration (factory pattern)
func NewLimiter(cfg LimiterConfig) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory", "":
		return NewMemoryLimiter(cfg.RequestsPerSecond), nil

	case "redis":
		if cfg.RedisClient != nil {
			return NewRedisLimiterFromClient(cfg.RedisClient, cfg.RequestsPerSecond), nil
		}
		limiter, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RequestsPerSecond)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter: %w", err)
		}
		return limiter, nil

	default:
		return nil, fmt.Errorf("unknown rate limiter type: %s (supported: 'memory', 'redis')", cfg.Type)
	}
}

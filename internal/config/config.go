package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Logging
	LogLevel  string
	LogPretty bool

	// Rate limiting
	RateLimitType   string // "memory" or "redis"
	RateLimit       int    // number of requests allowed
	RateLimitWindow int    // time window in seconds (default: 1)

	// Catalog configuration
	CatalogType       string // "csv", "mysql", or "redis"
	CatalogStoresPath string
	CatalogItemsPath  string
	CatalogQueryLimit int

	// MySQL configuration
	MySQLDSN string // Data Source Name

	// Redis configuration, shared by the Redis catalog and the Redis limiter
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Search behavior
	SearchDebounce       time.Duration
	SearchMinQueryLength int
	SearchMaxResults     int

	// Result cache
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// Load reads configuration from environment variables
// with sensible defaults
func Load() *Config {
	// Load .env file if it exists (for local development)
	// In production/Docker, environment variables are set directly
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port: getEnv("PORT", "3000"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		// Rate limiting (default: memory, 10 requests per 1 second)
		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 10),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),

		CatalogType:       getEnv("CATALOG_TYPE", "csv"),
		CatalogStoresPath: getEnv("CATALOG_STORES_PATH", "./data/stores.csv"),
		CatalogItemsPath:  getEnv("CATALOG_ITEMS_PATH", "./data/items.csv"),
		CatalogQueryLimit: getEnvAsInt("CATALOG_QUERY_LIMIT", 50),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SearchDebounce:       getEnvAsDuration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		SearchMinQueryLength: getEnvAsInt("SEARCH_MIN_QUERY_LENGTH", 2),
		SearchMaxResults:     getEnvAsInt("SEARCH_MAX_RESULTS", 20),

		CacheTTL:        getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		CacheMaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 50),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer
// Returns default if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean
// Accepts anything strconv.ParseBool does
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration reads an environment variable as a time.Duration ("300ms", "5m")
// A bare integer is taken as milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(valueStr); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}

	return value
}

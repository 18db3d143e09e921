package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/cache"
	"github.com/evyataryagoni/itemlocator/internal/catalog"
	"github.com/evyataryagoni/itemlocator/internal/config"
	"github.com/evyataryagoni/itemlocator/internal/handler"
	"github.com/evyataryagoni/itemlocator/internal/limiter"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/evyataryagoni/itemlocator/internal/router"
	"github.com/evyataryagoni/itemlocator/internal/search"
	"github.com/evyataryagoni/itemlocator/internal/service"
	"github.com/redis/go-redis/v9"
)

// @title           Item Locator API
// @version         1.0
// @description     Find which stores carry an item and how far away they are, with live search-as-you-type sessions

// @contact.name   Evyatar Yagoni
// @contact.email  evyatar@example.com

// @license.name  MIT
// @license.url   http://opensource.org/licenses/MIT

// @host      localhost:3000
// @BasePath  /
func main() {
	appConfig := config.Load()

	// Initialize components
	appLogger := setupLogger(appConfig)
	metricsCollector := setupMetrics(appLogger)

	itemCatalog := setupCatalog(appConfig, appLogger)
	defer itemCatalog.Close()

	rateLimiter := setupRateLimiter(appConfig, sharedRedisClient(itemCatalog), appLogger)
	defer rateLimiter.Close()

	// Build application layers
	resultCache := cache.New(cache.Options{
		TTL:        appConfig.CacheTTL,
		MaxEntries: appConfig.CacheMaxEntries,
	})
	pipeline := search.NewPipeline(itemCatalog, resultCache, search.Options{
		MaxResults: appConfig.SearchMaxResults,
	}, metricsCollector, appLogger)

	searchService := service.NewSearchService(pipeline, service.Options{
		Debounce:       appConfig.SearchDebounce,
		MinQueryLength: appConfig.SearchMinQueryLength,
	}, metricsCollector, appLogger)

	appRouter := router.SetupRouter(router.Handlers{
		Search: handler.NewSearchHandler(searchService),
		Live:   handler.NewLiveHandler(searchService, metricsCollector, appLogger),
	}, rateLimiter, metricsCollector, nil, appLogger)

	startServer(appConfig, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(appConfig *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level:  appConfig.LogLevel,
		Pretty: appConfig.LogPretty,
	})

	appLogger.Info().Msg("Starting Item Locator Server...")
	appLogger.Info().
		Str("port", appConfig.Port).
		Str("rate_limiter_type", appConfig.RateLimitType).
		Int("rate_limit", appConfig.RateLimit).
		Int("rate_limit_window", appConfig.RateLimitWindow).
		Str("catalog_type", appConfig.CatalogType).
		Dur("search_debounce", appConfig.SearchDebounce).
		Int("search_min_query_length", appConfig.SearchMinQueryLength).
		Int("search_max_results", appConfig.SearchMaxResults).
		Dur("cache_ttl", appConfig.CacheTTL).
		Int("cache_max_entries", appConfig.CacheMaxEntries).
		Msg("Configuration loaded")

	return appLogger
}

// setupCatalog initializes the item catalog based on configuration
// Supports CSV, MySQL, and Redis backends
func setupCatalog(appConfig *config.Config, log *logger.Logger) catalog.Catalog {
	itemCatalog, err := catalog.New(catalog.Config{
		Type:          appConfig.CatalogType,
		StoresPath:    appConfig.CatalogStoresPath,
		ItemsPath:     appConfig.CatalogItemsPath,
		QueryLimit:    appConfig.CatalogQueryLimit,
		MySQLDSN:      appConfig.MySQLDSN,
		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Str("type", appConfig.CatalogType).Msg("Failed to initialize catalog")
	}

	// Auto-load sample data if Redis is empty
	if redisCatalog, ok := itemCatalog.(*catalog.RedisCatalog); ok {
		loadRedisDataIfEmpty(redisCatalog, appConfig, log)
	}

	log.Info().Str("type", appConfig.CatalogType).Msg("Catalog initialized")
	return itemCatalog
}

// loadRedisDataIfEmpty copies the CSV catalog into Redis when the index is empty
func loadRedisDataIfEmpty(redisCatalog *catalog.RedisCatalog, appConfig *config.Config, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	isEmpty, err := redisCatalog.IsEmpty(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check if Redis is empty")
		return
	}
	if !isEmpty {
		return
	}

	log.Info().Msg("Redis is empty, loading sample data from CSV")
	stores, items, err := redisCatalog.LoadFromCSV(ctx, appConfig.CatalogStoresPath, appConfig.CatalogItemsPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load sample data")
		return
	}
	log.Info().Int("stores", stores).Int("items", items).Msg("Sample data loaded into Redis")
}

// sharedRedisClient returns the Redis catalog's connection, if there is one,
// so a Redis rate limiter does not open a second pool
func sharedRedisClient(itemCatalog catalog.Catalog) *redis.Client {
	if redisCatalog, ok := itemCatalog.(*catalog.RedisCatalog); ok {
		return redisCatalog.Client()
	}
	return nil
}

// setupRateLimiter initializes the rate limiter
// Supports in-memory and Redis-based rate limiting
func setupRateLimiter(appConfig *config.Config, redisClient *redis.Client, log *logger.Logger) limiter.Limiter {
	// Effective rate in requests per second
	// Example: 10 requests per 5 seconds = 10/5 = 2.0 req/s
	window := appConfig.RateLimitWindow
	if window <= 0 {
		window = 1
	}
	effectiveRate := float64(appConfig.RateLimit) / float64(window)

	rateLimiter, err := limiter.NewLimiter(limiter.LimiterConfig{
		Type:              appConfig.RateLimitType,
		RequestsPerSecond: effectiveRate,
		RedisClient:       redisClient,
		RedisAddr:         appConfig.RedisAddr,
		RedisPassword:     appConfig.RedisPassword,
		RedisDB:           appConfig.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	log.Info().
		Str("type", appConfig.RateLimitType).
		Float64("requests_per_second", effectiveRate).
		Bool("shared_redis_client", redisClient != nil).
		Msg("Rate limiter initialized")

	return rateLimiter
}

// setupMetrics initializes the Prometheus metrics collector
func setupMetrics(log *logger.Logger) *metrics.Metrics {
	metricsCollector := metrics.New()
	log.Info().Msg("Metrics initialized")
	return metricsCollector
}

// startServer serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func startServer(appConfig *config.Config, appRouter http.Handler, log *logger.Logger) {
	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           appRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("port", appConfig.Port).
			Str("api_endpoint", "http://localhost:"+appConfig.Port+"/v1/search?q=<text>").
			Str("live_endpoint", "ws://localhost:"+appConfig.Port+"/v1/search/live").
			Str("health_check", "http://localhost:"+appConfig.Port+"/health").
			Str("metrics", "http://localhost:"+appConfig.Port+"/metrics").
			Str("swagger", "http://localhost:"+appConfig.Port+"/swagger/index.html").
			Msg("Server is running")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
	log.Info().Msg("Server stopped")
}

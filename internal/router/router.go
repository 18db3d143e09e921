package router

import (
	"net/http"

	_ "github.com/evyataryagoni/itemlocator/docs" // Swagger docs
	"github.com/evyataryagoni/itemlocator/internal/handler"
	"github.com/evyataryagoni/itemlocator/internal/limiter"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/metrics"
	custommiddleware "github.com/evyataryagoni/itemlocator/internal/middleware"
	v1 "github.com/evyataryagoni/itemlocator/internal/router/v1"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	Search *handler.SearchHandler
	Live   *handler.LiveHandler
}

// SetupRouter creates and configures the Chi router with all middleware and routes.
// gatherer backs /metrics; nil means the default Prometheus registry.
func SetupRouter(h Handlers, rateLimiter limiter.Limiter, m *metrics.Metrics, gatherer prometheus.Gatherer, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	// Order matters: RequestID first, then logging, then rate limiting
	r.Use(middleware.RequestID)                              // Add unique request ID to each request
	r.Use(middleware.RealIP)                                 // Get real client IP (handles proxies/load balancers)
	r.Use(custommiddleware.LoggingMiddleware(log))           // Structured logging
	r.Use(middleware.Recoverer)                              // Recover from panics and return 500
	r.Use(custommiddleware.RateLimitMiddleware(rateLimiter)) // Rate limiting per client
	r.Use(custommiddleware.MetricsMiddleware(m))             // Collect Prometheus metrics

	// Versioned API
	r.Mount("/v1", v1.SetupRoutes(h.Search, h.Live))

	// Health check endpoint - used by load balancers and monitoring
	r.Get("/health", healthCheckHandler)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger UI: http://localhost:3000/swagger/index.html
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}

// healthCheckHandler returns 200 OK while the service is running
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

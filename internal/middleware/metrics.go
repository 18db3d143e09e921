package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Hijack lets the live search endpoint upgrade to a WebSocket through the wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// endpointLabel prefers the matched chi route pattern so path parameters
// and query strings do not blow up label cardinality
func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap the response writer to capture status code and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default status
			}

			// Process the request
			next.ServeHTTP(rw, r)

			// The route pattern is only known once chi has routed the request
			endpoint := endpointLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			if requestSize := float64(r.ContentLength); requestSize > 0 {
				m.HTTPRequestSize.WithLabelValues(r.Method, endpoint).Observe(requestSize)
			}

			m.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(r.Method, endpoint, status).Observe(float64(rw.size))
		})
	}
}

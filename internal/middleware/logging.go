package middleware

import (
	"net/http"
	"time"

	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// LoggingMiddleware logs HTTP requests with structured data
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi's wrapper keeps http.Hijacker, which the live search upgrade needs
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Request ID is set by chi's RequestID middleware
			reqLog := log.WithRequestID(middleware.GetReqID(r.Context()))

			reqLog.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// Determine log level based on status code
			logEvent := reqLog.Info()
			if ww.Status() >= 500 {
				logEvent = reqLog.Error()
			} else if ww.Status() >= 400 {
				logEvent = reqLog.Warn()
			}

			logEvent.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", endpointLabel(r)).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", duration).
				Msg("Request completed")
		})
	}
}

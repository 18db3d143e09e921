package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/evyataryagoni/itemlocator/internal/limiter"
	"github.com/evyataryagoni/itemlocator/internal/models"
)

// RateLimitMiddleware enforces rate limiting per client (returns 429 when exceeded).
// A live search WebSocket counts once, at upgrade.
func RateLimitMiddleware(lim limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.ErrorResponse{
					Error: "Rate limit exceeded. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller: X-Real-IP, then the first
// X-Forwarded-For hop ("client, proxy1, proxy2"), then RemoteAddr
func clientKey(r *http.Request) string {
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return r.RemoteAddr
}

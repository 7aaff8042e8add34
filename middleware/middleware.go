package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
)

// RateLimitMiddleware limits requests per second per client IP. Aggregated
// searches fan out to three upstream workers, so even a modest request rate
// multiplies quickly.
func RateLimitMiddleware(rps float64) func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})
	lmt.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
	lmt.SetMessage(`{"error":"rate limit exceeded"}`)
	lmt.SetMessageContentType("application/json")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks are exempt
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			tollbooth.LimitHandler(lmt, next).ServeHTTP(w, r)
		})
	}
}

// APIKeyMiddleware validates API keys when key auth is enabled
func APIKeyMiddleware(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip API key validation for health checks
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := extractAPIKey(r)

			if required && apiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if apiKey != "" && !isValidAPIKey(apiKey) {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey extracts the API key from the request
func extractAPIKey(r *http.Request) string {
	// Check Authorization header first
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		if strings.HasPrefix(auth, "ApiKey ") {
			return strings.TrimPrefix(auth, "ApiKey ")
		}
	}

	// Check X-API-Key header
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}

	// Check query parameter
	if apiKey := r.URL.Query().Get("api_key"); apiKey != "" {
		return apiKey
	}

	return ""
}

// isValidAPIKey validates an API key format
func isValidAPIKey(apiKey string) bool {
	if len(apiKey) < 10 {
		return false
	}
	return strings.HasPrefix(apiKey, "ph_") || strings.HasPrefix(apiKey, "test_")
}

// LoggingMiddleware logs API requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		if r.URL.Path != "/health" {
			// Only log non-health check requests
			log.Printf("API Request: %s %s (Status: %d, Duration: %v)", r.Method, r.URL.Path, wrapped.statusCode, duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b)
}

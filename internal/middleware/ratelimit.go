package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/outrclub/outr-api/internal/ratelimit"
)

type throttledResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
	Message           string `json:"message"`
}

// RateLimit returns middleware that admits requests per client IP through l.
// Rejected requests get 429 with a Retry-After header.
func RateLimit(l *ratelimit.Limiter, maxPerWindow int) func(http.Handler) http.Handler {
	message := fmt.Sprintf("%d requests per minute allowed. Try again later.", maxPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := l.Allow(ClientIP(r))
			if !decision.Allowed {
				retryAfter := decision.RetryAfterSeconds()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(throttledResponse{
					Error:             "Too many requests",
					RetryAfterSeconds: retryAfter,
					Message:           message,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

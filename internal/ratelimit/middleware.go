// Package ratelimit wraps httprate limiters behind application config.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/maisonmara/server/internal/config"
)

// rateLimitResponse is the JSON body returned when a limit trips.
type rateLimitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

func limitHandler(message string, window time.Duration) func(http.ResponseWriter, *http.Request) {
	seconds := int(window.Seconds())
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(rateLimitResponse{
			Error:             "rate_limit_exceeded",
			Message:           message,
			RetryAfterSeconds: seconds,
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }

// GlobalLimiter limits total request throughput across all clients.
func GlobalLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled || cfg.GlobalLimit <= 0 {
		return passthrough
	}
	window := cfg.GlobalWindow.Duration
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		cfg.GlobalLimit,
		window,
		httprate.WithLimitHandler(limitHandler("Rate limit exceeded. Please try again later.", window)),
	)
}

// IPLimiter limits request throughput per client IP.
func IPLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.PerIPEnabled || cfg.PerIPLimit <= 0 {
		return passthrough
	}
	window := cfg.PerIPWindow.Duration
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		cfg.PerIPLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitHandler("IP rate limit exceeded. Please try again later.", window)),
	)
}

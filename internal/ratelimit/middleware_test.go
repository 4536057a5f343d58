package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maisonmara/server/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGlobalLimiterDisabledPassesThrough(t *testing.T) {
	handler := GlobalLimiter(config.RateLimitConfig{})(okHandler())
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestGlobalLimiterTrips(t *testing.T) {
	cfg := config.RateLimitConfig{
		GlobalEnabled: true,
		GlobalLimit:   3,
		GlobalWindow:  config.Duration{Duration: time.Minute},
	}
	handler := GlobalLimiter(cfg)(okHandler())

	var limited bool
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if rec.Header().Get("Retry-After") == "" {
				t.Error("limited response missing Retry-After header")
			}
		}
	}
	if !limited {
		t.Error("expected at least one request to be rate limited")
	}
}

func TestIPLimiterSeparatesClients(t *testing.T) {
	cfg := config.RateLimitConfig{
		PerIPEnabled: true,
		PerIPLimit:   2,
		PerIPWindow:  config.Duration{Duration: time.Minute},
	}
	handler := IPLimiter(cfg)(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("first client request %d: status %d", i, code)
		}
	}
	if code := send("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("first client should be limited, got %d", code)
	}
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("second client should not be limited, got %d", code)
	}
}

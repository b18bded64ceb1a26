package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saaw-digital/giveaway-service/internal/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	h := middleware.RateLimit(1, 2)(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/giveaway", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d within burst: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitExhaustedBucketReturns429(t *testing.T) {
	h := middleware.RateLimit(1, 1)(okHandler())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/giveaway", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/giveaway", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket is empty, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After header, got %q", second.Header().Get("Retry-After"))
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", second.Header().Get("Content-Type"))
	}
	if !strings.Contains(second.Body.String(), "Zu viele Anfragen") {
		t.Errorf("unexpected body %q", second.Body.String())
	}
}

package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit bounds the public submission endpoints with a shared token
// bucket. Campaign traffic is small; a single process-wide limiter is enough
// to keep bursts away from the ledger and the CRM.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"message":"Zu viele Anfragen"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

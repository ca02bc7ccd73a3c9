package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds the whole handler chain below it. A request that runs out
// of time gets a 503 with a JSON error body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	const message = `{"error":"request timed out"}`

	return func(next http.Handler) http.Handler {
		limited := http.TimeoutHandler(next, timeout, message)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			limited.ServeHTTP(w, r)
		})
	}
}

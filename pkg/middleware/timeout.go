package middleware

import (
	"context"
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timeout"}`

// Timeout returns middleware that bounds each request. The request context
// carries the deadline so blocking work (cache lookups, Kafka publishes)
// stops on its own, and http.TimeoutHandler answers 503 for handlers that
// overrun anyway.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, d, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware puts a deadline on every request context. Cancellation
// is cooperative: outbound provider and proxy calls are built with
// NewRequestWithContext, so hitting the deadline aborts them mid-flight.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package requesttime pins one "now" per request. Session expiry, OTP
// deadlines and audit timestamps written while serving a request all read
// the same instant.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type ctxKey struct{}

// Middleware stamps each request with the wall clock in UTC.
func Middleware(next http.Handler) http.Handler {
	return Clocked(time.Now)(next)
}

// Clocked is Middleware with an injectable clock.
func Clocked(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithTime(r.Context(), clock().UTC())))
		})
	}
}

// Now returns the instant stored in ctx, or the current UTC time when ctx
// carries none (workers, the seeder, CLI tools).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ctxKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime returns a context whose Now is t.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

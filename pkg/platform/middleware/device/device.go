// Package device attaches parsed User-Agent details to the request context.
package device

import (
	"net/http"

	"warden/pkg/requestcontext"
)

// Parser turns a User-Agent into device details.
type Parser func(userAgent string) requestcontext.Device

// Middleware stores parse(User-Agent) in the context. It reads the User-Agent
// recorded by the metadata middleware, so it must run after it. A nil parser
// makes it a no-op.
func Middleware(parse Parser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if parse == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ua := requestcontext.UserAgent(ctx); ua != "" {
				r = r.WithContext(requestcontext.WithDevice(ctx, parse(ua)))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package auth extracts bearer tokens. Resolving them is the authz gate's job.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/httputil"
	"warden/pkg/requestcontext"
)

const bearerScheme = "Bearer"

// ExtractBearer returns the token from "Authorization: Bearer <token>". The
// scheme is case-insensitive and an empty token counts as absent.
func ExtractBearer(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireBearer rejects requests without a bearer token but does not
// resolve it, so OTP endpoints can reach sessions still awaiting verification.
func RequireBearer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := ExtractBearer(r)
			if !ok {
				logger.WarnContext(ctx, "missing bearer token",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUserNotAuthenticated, "missing or invalid Authorization header"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithBearer(ctx, token)))
		})
	}
}

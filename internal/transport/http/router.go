// Package httptransport assembles the public HTTP surface: the shared
// middleware chain, the auth and tenant routes, health and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"warden/internal/auth/device"
	authhandler "warden/internal/auth/handler"
	authmodels "warden/internal/auth/models"
	"warden/internal/authz"
	"warden/internal/platform/health"
	tenanthandler "warden/internal/tenant/handler"
	authmw "warden/pkg/platform/middleware/auth"
	devicemw "warden/pkg/platform/middleware/device"
	"warden/pkg/platform/middleware/metadata"
	"warden/pkg/platform/middleware/request"
	"warden/pkg/platform/middleware/requesttime"
	"warden/pkg/platform/validation"
)

const defaultRequestTimeout = 30 * time.Second

// Config holds the transport-level knobs read from the environment.
type Config struct {
	CORSAllowedOrigins []string
	TrustedProxies     []netip.Prefix
	RequestTimeout     time.Duration
}

// Dependencies are the handlers and middleware the router mounts.
type Dependencies struct {
	Auth    *authhandler.Handler
	Tenants *tenanthandler.Handler
	Health  *health.Handler
	Gate    *authz.Gate
	Latency request.LatencyObserver
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(deps Dependencies, cfg Config) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	// Client metadata must be on the context before Logger wraps the request.
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: cfg.TrustedProxies}).Handler)
	r.Use(devicemw.Middleware(device.Parse))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(deps.Latency))
	r.Use(request.Timeout(timeout))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))
	}
	r.Use(request.BodyLimit(validation.MaxBodySize))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)

		deps.Auth.Register(r)

		// OTP routes accept sessions that are still waiting on verification,
		// so they need a bearer but not the gate.
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireBearer(logger))
			deps.Auth.RegisterPending(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Gate.Require(authmodels.RoleUser))
			deps.Auth.RegisterAuthenticated(r)
		})

		deps.Tenants.Register(r, deps.Gate)
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", authz.TenantDomainHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "warden/internal/auth/handler"
	authservice "warden/internal/auth/service"
	"warden/internal/authz"
	"warden/internal/otp"
	"warden/internal/platform/config"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/internal/seeder"
	tenanthandler "warden/internal/tenant/handler"
	tenantmetrics "warden/internal/tenant/metrics"
	tenantservice "warden/internal/tenant/service"
	httptransport "warden/internal/transport/http"
	"warden/pkg/platform/middleware/metadata"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	log.Info("initializing warden",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"session_backend", cfg.SessionBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	m := metrics.New()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	st := buildStores(cfg, infra)
	auditPub := buildAudit(cfg, infra, log)
	defer auditPub.Close()
	dispatcher := buildDispatcher(cfg, m, log)

	auth := authservice.New(st.users, st.sessions,
		authservice.Config{SessionTTL: cfg.SessionTTL, PasswordResetTTL: cfg.PasswordResetTTL},
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditPub),
		authservice.WithMetrics(m),
		authservice.WithMailer(dispatcher),
	)
	otpSvc := otp.New(st.sessions, st.users, dispatcher,
		otp.Config{TTL: cfg.OTPTTL, MaxAttempts: cfg.OTPMaxAttempts},
		otp.WithLogger(log),
		otp.WithAuditPublisher(auditPub),
		otp.WithMetrics(m),
	)

	tenantOpts := []tenantservice.Option{
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(auditPub),
		tenantservice.WithMetrics(tenantmetrics.New()),
	}
	resolver := tenantservice.NewResolver(st.tenants, st.members, st.sessions, tenantOpts...)
	gate := authz.NewGate(auth, resolver,
		authz.WithLogger(log),
		authz.WithAuditPublisher(auditPub),
		authz.WithMetrics(m),
	)

	if err := seed(ctx, cfg, st, auditPub, log); err != nil {
		return err
	}
	if err := startSweeper(ctx, st, m, log); err != nil {
		return err
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Auth: authhandler.New(auth, otpSvc, log),
		Tenants: tenanthandler.New(
			tenantservice.NewTenantService(st.tenants, st.members, tenantOpts...),
			tenantservice.NewMemberService(st.tenants, st.members, st.users, tenantOpts...),
			resolver,
			log,
		),
		Health:  infra.health,
		Gate:    gate,
		Latency: m,
		Metrics: promhttp.Handler(),
		Logger:  log,
	}, httptransport.Config{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     proxies,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seed(ctx context.Context, cfg config.Server, st stores, auditPub seeder.AuditPublisher, log *slog.Logger) error {
	s := seeder.New(st.users, st.tenants, st.members, auditPub, log)
	if cfg.Bootstrap.Enabled() {
		if _, err := s.BootstrapAdmin(ctx, cfg.Bootstrap.Email, cfg.Bootstrap.Password); err != nil {
			return err
		}
	}
	if cfg.IsProduction() {
		return nil
	}
	return s.SeedDemo(ctx)
}

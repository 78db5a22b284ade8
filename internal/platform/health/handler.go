// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"warden/pkg/platform/httputil"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// CheckFunc reports a dependency as down by returning an error.
type CheckFunc func(ctx context.Context) error

const checkTimeout = 2 * time.Second

type Handler struct {
	started     time.Time
	environment string
	now         func() time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func New(environment string) *Handler {
	return &Handler{
		started:     time.Now(),
		environment: environment,
		now:         time.Now,
		checks:      map[string]CheckFunc{},
	}
}

// RegisterCheck adds or replaces the named dependency check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Get("/live", h.HandleLiveness)
		r.Get("/ready", h.HandleReadiness)
	})
}

type LivenessResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type StatusResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Environment   string            `json:"environment"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
	Dependencies  map[string]string `json:"dependencies,omitempty"`
}

// HandleLiveness answers 200 while the process can serve HTTP at all.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// HandleReadiness answers 503 when any registered check fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	results, ok := h.probe(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Checks: results})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Checks: results})
}

// HandleStatus always answers 200; a failing check turns the status "degraded".
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	results, ok := h.probe(r.Context())
	status := "healthy"
	if !ok {
		status = "degraded"
	}
	now := h.now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        status,
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
		Dependencies:  results,
	})
}

// probe runs every check concurrently, each under its own timeout, and
// returns "up" or "down: <reason>" per name.
func (h *Handler) probe(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	fns := make([]CheckFunc, 0, len(h.checks))
	for name, fn := range h.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	errs := make([]error, len(fns))
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			errs[i] = fn(cctx)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]string, len(names))
	ok := true
	for i, name := range names {
		if errs[i] != nil {
			results[name] = "down: " + errs[i].Error()
			ok = false
			continue
		}
		results[name] = "up"
	}
	return results, ok
}

// Package cleanup sweeps sessions that expired long enough ago that no
// client could still be told "session expired" about them.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type SessionStore interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

type RevocationRecorder interface {
	AddSessionsRevoked(count int)
}

// Config tunes a Sweeper. Zero fields take the defaults below.
type Config struct {
	// Interval between sweeps. Default 5m.
	Interval time.Duration
	// Grace keeps expired sessions resolvable as session_expired. Default 1h.
	Grace time.Duration

	Now     func() time.Time
	Metrics RevocationRecorder
	Logger  *slog.Logger
}

type Sweeper struct {
	store SessionStore
	cfg   Config
}

func New(store SessionStore, cfg Config) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("cleanup: session store is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{store: store, cfg: cfg}, nil
}

// Run sweeps once immediately and then every Interval until ctx is done.
// Failed sweeps are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	tick := time.NewTicker(s.cfg.Interval)
	defer tick.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.cfg.Logger.ErrorContext(ctx, "session sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// Sweep deletes sessions that expired before now minus Grace and returns
// how many went.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.cfg.Now().Add(-s.cfg.Grace)
	n, err := s.store.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete sessions expired before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n == 0 {
		return 0, nil
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.AddSessionsRevoked(n)
	}
	s.cfg.Logger.InfoContext(ctx, "expired sessions swept", "count", n, "cutoff", cutoff)
	return n, nil
}

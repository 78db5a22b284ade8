// Package publisher fronts an audit.Store, optionally through a bounded
// in-memory queue drained by one goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	audit "warden/pkg/platform/audit"
	auditmetrics "warden/pkg/platform/audit/metrics"
)

// Publisher is append-only. In synchronous mode Emit returns the store's
// error; in async mode Emit only fails when the queue is full.
type Publisher struct {
	store   audit.Store
	queue   chan audit.Event
	done    sync.WaitGroup
	closing sync.Once
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events. Sizes below one keep Emit synchronous.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan audit.Event, size)
		}
	}
}

// WithPublisherLogger reports drops and async persist failures.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *auditmetrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.done.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.done.Done()
	for event := range p.queue {
		if p.metrics != nil {
			p.metrics.Dequeued(len(p.queue))
		}
		if err := p.persist(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"user_id", event.UserID,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.Persisted(event.Action, start, err)
	}
	return err
}

// Close stops accepting events and blocks until the queue is drained.
// It is safe to call more than once.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.closing.Do(func() {
		close(p.queue)
		p.done.Wait()
	})
}

// Emit stamps a zero Timestamp with the current UTC time before storing.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.queue == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.queue <- event:
		if p.metrics != nil {
			p.metrics.Accepted(event.Action, len(p.queue))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.metrics != nil {
		p.metrics.Rejected(event.Action)
	}
	if p.logger != nil {
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"user_id", event.UserID,
		)
	}
	return dErrors.New(dErrors.CodeInternal, "audit buffer full")
}

// List returns the stored events for userID.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

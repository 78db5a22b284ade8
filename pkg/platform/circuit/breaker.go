// Package circuit guards outbound calls with a consecutive-failure breaker.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the circuit refuses calls.
var ErrOpen = errors.New("circuit open")

type State int

const (
	Closed State = iota
	Open
	// HalfOpen admits a single probe; its outcome decides the next state.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker opens after a run of failures, waits out a cooldown, then lets one
// probe through. A failed probe reopens it; enough successful probes close it.
type Breaker struct {
	name     string
	failures int
	probes   int
	cooldown time.Duration
	now      func() time.Time
	onChange func(name string, from, to State)

	mu        sync.Mutex
	state     State
	failed    int
	succeeded int
	openedAt  time.Time
	probing   bool
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit (default 5).
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failures = n
		}
	}
}

// WithSuccessThreshold sets how many successful probes close it (default 1).
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.probes = n
		}
	}
}

// WithCooldown sets how long the circuit stays open before probing (default 30s).
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// OnStateChange registers a hook called, outside the lock, on every transition.
func OnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:     name,
		failures: 5,
		probes:   1,
		cooldown: 30 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Execute runs fn unless the circuit refuses it, in which case fn is not
// called and ErrOpen is returned. fn's error counts as a failure.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case Open:
		return ErrOpen
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	from := b.current()
	b.probing = false
	switch {
	case ok && from == HalfOpen:
		b.succeeded++
		if b.succeeded >= b.probes {
			b.state, b.failed, b.succeeded = Closed, 0, 0
		}
	case ok:
		b.failed = 0
	case from == HalfOpen:
		b.trip()
	default:
		b.failed++
		if b.failed >= b.failures {
			b.trip()
		}
	}
	to := b.current()
	b.mu.Unlock()

	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.succeeded = 0
}

// current reports Open as HalfOpen once the cooldown has passed. Callers hold mu.
func (b *Breaker) current() State {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset closes the circuit and clears all counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state, b.failed, b.succeeded, b.probing = Closed, 0, 0, false
}

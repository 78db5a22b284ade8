// Package notify delivers one-time codes and account notices over SMS and
// email. Delivery is best-effort: the Dispatcher logs and counts failures and
// callers decide whether a failure matters.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	dErrors "warden/pkg/domain-errors"
	"warden/pkg/platform/privacy"
)

// Channel names an outbound delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Sender delivers a message to one destination on one channel.
type Sender interface {
	Send(ctx context.Context, destination, message string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, destination, message string) error

func (f SenderFunc) Send(ctx context.Context, destination, message string) error {
	return f(ctx, destination, message)
}

// FailureRecorder counts failed deliveries per channel.
type FailureRecorder interface {
	IncrementDeliveryFailures(channel string)
}

// Delivery is one message bound for one channel.
type Delivery struct {
	Channel     Channel
	Destination string
	Message     string
}

// Dispatcher routes deliveries to the sender registered for their channel.
type Dispatcher struct {
	senders map[Channel]Sender
	logger  *slog.Logger
	metrics FailureRecorder
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m FailureRecorder) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithSender registers the sender for a channel, replacing any earlier one.
func WithSender(ch Channel, s Sender) Option {
	return func(d *Dispatcher) {
		d.senders[ch] = s
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{senders: make(map[Channel]Sender)}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Send delivers on a single channel and returns the failure, already logged.
func (d *Dispatcher) Send(ctx context.Context, del Delivery) error {
	sender, ok := d.senders[del.Channel]
	if !ok {
		err := dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no sender configured for channel %s", del.Channel))
		d.recordFailure(ctx, del, err)
		return err
	}
	if err := sender.Send(ctx, del.Destination, del.Message); err != nil {
		d.recordFailure(ctx, del, err)
		return err
	}
	return nil
}

// SendAll delivers every message concurrently. A failure on one channel never
// cancels the others; the number of failed deliveries is returned.
func (d *Dispatcher) SendAll(ctx context.Context, deliveries ...Delivery) int {
	failed := make([]bool, len(deliveries))
	var g errgroup.Group
	for i, del := range deliveries {
		g.Go(func() error {
			if err := d.Send(ctx, del); err != nil {
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}

func (d *Dispatcher) recordFailure(ctx context.Context, del Delivery, err error) {
	d.logger.WarnContext(ctx, "notification delivery failed",
		"channel", string(del.Channel),
		"destination", privacy.MaskContact(del.Destination),
		"error", err,
	)
	if d.metrics != nil {
		d.metrics.IncrementDeliveryFailures(string(del.Channel))
	}
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"warden/pkg/platform/circuit"
	"warden/pkg/platform/sentinel"
)

// WebhookPayload is the JSON body posted to the delivery relay.
type WebhookPayload struct {
	Channel     Channel `json:"channel"`
	Destination string  `json:"destination"`
	Message     string  `json:"message"`
}

// WebhookSender hands deliveries to an HTTP relay that owns the actual SMS and
// email providers. A circuit breaker stops hammering a relay that keeps failing.
type WebhookSender struct {
	url     string
	channel Channel
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type WebhookOption func(*WebhookSender)

func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSender) {
		if c != nil {
			s.client = c
		}
	}
}

func WithBreaker(b *circuit.Breaker) WebhookOption {
	return func(s *WebhookSender) {
		if b != nil {
			s.breaker = b
		}
	}
}

func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(s *WebhookSender) {
		s.logger = logger
	}
}

func NewWebhookSender(url string, channel Channel, opts ...WebhookOption) *WebhookSender {
	s := &WebhookSender{
		url:     url,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("notify_webhook_"+string(channel), circuit.OnStateChange(s.logTransition))
	}
	return s
}

func (s *WebhookSender) Send(ctx context.Context, destination, message string) error {
	err := s.breaker.Execute(func() error {
		return s.post(ctx, WebhookPayload{Channel: s.channel, Destination: destination, Message: message})
	})
	if errors.Is(err, circuit.ErrOpen) {
		return fmt.Errorf("delivery relay %s: %w", s.breaker.Name(), sentinel.ErrUnavailable)
	}
	return err
}

func (s *WebhookSender) logTransition(name string, from, to circuit.State) {
	level := slog.LevelInfo
	if to == circuit.Open {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "circuit breaker state changed",
		"circuit", name, "from", from.String(), "to", to.String())
}

func (s *WebhookSender) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook relay returned status %d", resp.StatusCode)
	}
	return nil
}

package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sink receives the booking-completed fact. Publish reports how many
// attempts it made.
type Sink interface {
	Name() string
	Publish(ctx context.Context, evt BookingCompleted) (attempts int, err error)
}

type WebhookConfig struct {
	URL         string
	MaxAttempts int
	Backoff     time.Duration
	Client      *http.Client
}

// WebhookSink POSTs the event as JSON, retrying network errors, 429 and 5xx.
type WebhookSink struct {
	cfg WebhookConfig
}

func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookSink{cfg: cfg}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Publish(ctx context.Context, evt BookingCompleted) (int, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal: %v", ErrWebhookDispatch, err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		retry, err := s.post(ctx, evt, body)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if !retry || attempt == s.cfg.MaxAttempts {
			return attempt, fmt.Errorf("%w: %v", ErrWebhookDispatch, lastErr)
		}

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%w: %v", ErrWebhookDispatch, ctx.Err())
		case <-time.After(s.cfg.Backoff * time.Duration(attempt)):
		}
	}
	return s.cfg.MaxAttempts, fmt.Errorf("%w: %v", ErrWebhookDispatch, lastErr)
}

func (s *WebhookSink) post(ctx context.Context, evt BookingCompleted, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", evt.Event)
	req.Header.Set("Idempotency-Key", "booking-"+strconv.FormatInt(evt.BookingID, 10))

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, key, messageID string, v any) error
}

// AMQPSink publishes the event to a topic exchange under EventBookingCompleted.
type AMQPSink struct {
	pub jsonPublisher
}

func NewAMQPSink(pub jsonPublisher) *AMQPSink {
	return &AMQPSink{pub: pub}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Publish(ctx context.Context, evt BookingCompleted) (int, error) {
	id := "booking-" + strconv.FormatInt(evt.BookingID, 10)
	if err := s.pub.PublishJSON(ctx, EventBookingCompleted, id, evt); err != nil {
		return 1, fmt.Errorf("%w: amqp: %v", ErrWebhookDispatch, err)
	}
	return 1, nil
}

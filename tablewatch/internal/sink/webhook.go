package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/event"
)

// WebhookConfig configures a Webhook sink.
type WebhookConfig struct {
	URL string

	// Attempts is the number of deliveries tried per event. Default: 4.
	Attempts int

	// Backoff is the wait before the second attempt, doubled after each
	// failure and capped at MaxBackoff. Default: 1s.
	Backoff time.Duration

	// MaxBackoff also caps a receiver's Retry-After. Default: 30s.
	MaxBackoff time.Duration

	// Timeout bounds one delivery. Default: 10s.
	Timeout time.Duration

	Logger *slog.Logger
}

func (c *WebhookConfig) defaults() {
	if c.Attempts <= 0 {
		c.Attempts = 4
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// DeliveryError reports an event the receiver never accepted.
type DeliveryError struct {
	Event    string // event type
	ID       string // event id
	Status   int    // last HTTP status, 0 on transport failure
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("webhook: %s %s: status %d after %d attempt(s)", e.Event, e.ID, e.Status, e.Attempts)
	}
	return fmt.Sprintf("webhook: %s %s: %v after %d attempt(s)", e.Event, e.ID, e.Err, e.Attempts)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Webhook POSTs each event as a JSON envelope. Receivers see the event
// type in X-Tablewatch-Event and can drop redelivered events by
// X-Tablewatch-Delivery, which carries the event id.
//
// Transport errors, 429 and 5xx are retried. Any other status is final.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook creates a Webhook sink.
func NewWebhook(cfg WebhookConfig) *Webhook {
	cfg.defaults()
	return &Webhook{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (w *Webhook) SendHunt(ctx context.Context, h event.Hunt) error {
	return w.deliver(ctx, "hunt", h.ID, h)
}

func (w *Webhook) SendSeating(ctx context.Context, s event.Seating) error {
	return w.deliver(ctx, "seating", s.ID, s)
}

func (w *Webhook) SendRound(ctx context.Context, r event.RoundStarted) error {
	return w.deliver(ctx, "round_started", r.ID, r)
}

func (w *Webhook) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func (w *Webhook) deliver(ctx context.Context, typ, id string, data any) error {
	body, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("webhook: marshal %s: %w", typ, err)
	}

	derr := &DeliveryError{Event: typ, ID: id}
	wait := w.cfg.Backoff
	for derr.Attempts < w.cfg.Attempts {
		derr.Attempts++
		status, retryAfter, err := w.once(ctx, typ, id, body)
		if err == nil && status/100 == 2 {
			return nil
		}
		derr.Status, derr.Err = status, err
		if ctx.Err() != nil {
			derr.Err = ctx.Err()
			return derr
		}
		if !retryable(status) || derr.Attempts == w.cfg.Attempts {
			break
		}

		pause := min(max(wait, retryAfter), w.cfg.MaxBackoff)
		w.cfg.Logger.Warn("webhook: delivery failed, retrying",
			"event", typ, "id", id, "attempt", derr.Attempts, "status", status, "error", err, "in", pause)
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			derr.Err = ctx.Err()
			return derr
		}
		wait *= 2
	}
	w.cfg.Logger.Error("webhook: event dropped", "event", typ, "id", id,
		"attempts", derr.Attempts, "status", derr.Status, "error", derr.Err)
	return derr
}

// once performs a single POST. A zero status means the request never got
// an answer.
func (w *Webhook) once(ctx context.Context, typ, id string, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tablewatch-Event", typ)
	req.Header.Set("X-Tablewatch-Delivery", id)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
	return resp.StatusCode, retryAfter(resp.Header.Get("Retry-After")), nil
}

// retryable reports whether a delivery that ended with status may succeed
// later. Status 0 is a transport failure.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// retryAfter parses a Retry-After header given in seconds. Dates and
// garbage yield zero.
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loykin/webwatch/internal/matcher"
)

// Webhook POSTs the alert as JSON with retry and exponential backoff.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) {
		if n >= 0 {
			w.maxRetries = n
		}
	}
}

// WithWebhookBackoff sets the first retry delay; it doubles per attempt. Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.logger = l
		}
	}
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

type webhookPayload struct {
	Message
	Matches []matcher.KeywordMatch `json:"matches"`
	SentAt  time.Time              `json:"sent_at"`
}

func (w *Webhook) Notify(ctx context.Context, source string, matches []matcher.KeywordMatch) error {
	if len(matches) == 0 {
		return nil
	}
	body, err := json.Marshal(webhookPayload{
		Message: Format(source, matches),
		Matches: matches,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return &NotifyError{Channel: "webhook", Source: source, Err: fmt.Errorf("marshal: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &NotifyError{Channel: "webhook", Source: source, Err: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return &NotifyError{Channel: "webhook", Source: source, Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Warn("webhook request failed", "attempt", attempt+1, "error", err)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
		w.logger.Warn("webhook bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return &NotifyError{Channel: "webhook", Source: source, Err: fmt.Errorf("all retries exhausted: %w", lastErr)}
}

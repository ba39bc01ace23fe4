// Package notifier delivers change notifications to an outbound webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

// Config holds notification settings.
type Config struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	WebhookURL     string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	RetryAttempts  int    `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultConfig creates default notification configuration
func NewDefaultConfig() Config {
	return Config{
		Enabled:        true,
		TimeoutSeconds: 20,
		RetryAttempts:  2,
	}
}

// WebhookNotifier posts notifications as JSON to a configured webhook.
type WebhookNotifier struct {
	cfg        Config
	logger     zerolog.Logger
	httpClient *http.Client
	backoff    common.BackoffConfig
}

// NewWebhookNotifier creates a WebhookNotifier. A nil httpClient falls
// back to a default client with the configured timeout.
func NewWebhookNotifier(cfg Config, logger zerolog.Logger, httpClient *http.Client) *WebhookNotifier {
	moduleLogger := logger.With().Str("component", "WebhookNotifier").Logger()

	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	backoff := common.DefaultBackoffConfig()
	if cfg.RetryAttempts > 0 {
		backoff.MaxAttempts = cfg.RetryAttempts
	}

	return &WebhookNotifier{
		cfg:        cfg,
		logger:     moduleLogger,
		httpClient: httpClient,
		backoff:    backoff,
	}
}

type webhookPayload struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	CorrelationID string `json:"correlation_id"`
}

// Notify delivers one notification. Disabled or unconfigured notifiers
// skip silently; delivery failures are retried with backoff before
// giving up.
func (wn *WebhookNotifier) Notify(ctx context.Context, n models.Notification) error {
	if !wn.cfg.Enabled || wn.cfg.WebhookURL == "" {
		wn.logger.Debug().Str("correlation_id", n.CorrelationID).Msg("Notifications disabled, skipping send")
		return nil
	}

	if _, err := url.ParseRequestURI(wn.cfg.WebhookURL); err != nil {
		return common.WrapError(err, "invalid webhook URL")
	}

	payload, err := json.Marshal(webhookPayload{
		Title:         n.Title,
		Body:          n.Body,
		CorrelationID: n.CorrelationID,
	})
	if err != nil {
		return common.WrapError(err, "failed to marshal notification payload")
	}

	var lastErr error
	for attempt := 1; attempt <= wn.backoff.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := wn.backoff.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		lastErr = wn.post(ctx, payload)
		if lastErr == nil {
			wn.logger.Info().
				Str("correlation_id", n.CorrelationID).
				Str("title", n.Title).
				Msg("Notification delivered")
			return nil
		}

		wn.logger.Warn().Err(lastErr).
			Int("attempt", attempt).
			Str("correlation_id", n.CorrelationID).
			Msg("Notification delivery failed")
	}

	return common.WrapErrorf(lastErr, "notification delivery failed after %d attempts", wn.backoff.MaxAttempts)
}

func (wn *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return common.WrapError(err, "failed to create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return common.WrapError(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return common.NewError("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

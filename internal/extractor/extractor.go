// Package extractor obtains the normalized text of a page fragment by
// driving a page-rendering capability: navigate, replay recorded
// interactions in order, then run the extraction script. Blank results
// retry the whole sequence before becoming an ExtractionError.
package extractor

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

// Config holds extraction pacing settings.
type Config struct {
	// InitialSettleMillis is the wait after load-complete before the
	// first interaction (or the extraction on interaction-free monitors).
	InitialSettleMillis int `json:"initial_settle_millis,omitempty" yaml:"initial_settle_millis,omitempty" validate:"omitempty,min=0"`
	// InteractionSettleMillis is the wait after each replayed interaction.
	InteractionSettleMillis int `json:"interaction_settle_millis,omitempty" yaml:"interaction_settle_millis,omitempty" validate:"omitempty,min=0"`
	// MaxAttempts bounds full navigate-replay-extract retries per check.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"omitempty,min=1"`
	// RetryDelayMillis is the fixed backoff between attempts.
	RetryDelayMillis int `json:"retry_delay_millis,omitempty" yaml:"retry_delay_millis,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultConfig creates default extractor configuration
func NewDefaultConfig() Config {
	return Config{
		InitialSettleMillis:     2000,
		InteractionSettleMillis: 2000,
		MaxAttempts:             3,
		RetryDelayMillis:        5000,
	}
}

// ContentExtractor runs the navigate-replay-extract pipeline against
// fresh page sessions.
type ContentExtractor struct {
	sessions SessionFactory
	config   Config
	logger   zerolog.Logger
}

// NewContentExtractor creates a new ContentExtractor
func NewContentExtractor(sessions SessionFactory, cfg Config, logger zerolog.Logger) *ContentExtractor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &ContentExtractor{
		sessions: sessions,
		config:   cfg,
		logger:   logger.With().Str("component", "ContentExtractor").Logger(),
	}
}

// Extract returns the normalized text of the element matching selector
// after replaying the interactions on url. A blank extraction retries the
// entire sequence up to the configured attempt count; exhausting the
// attempts yields an ExtractionError.
func (ce *ContentExtractor) Extract(ctx context.Context, url string, interactions []models.Interaction, selector string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= ce.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, time.Duration(ce.config.RetryDelayMillis)*time.Millisecond); err != nil {
				return "", common.NewExtractionError(url, attempt-1, err)
			}
		}

		text, err := ce.extractOnce(ctx, url, interactions, selector)
		if err != nil {
			lastErr = err
			ce.logger.Warn().Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Msg("Extraction attempt failed")
			continue
		}
		if text == "" {
			lastErr = nil
			ce.logger.Warn().
				Str("url", url).
				Str("selector", selector).
				Int("attempt", attempt).
				Msg("Extraction attempt yielded blank content")
			continue
		}
		return text, nil
	}

	return "", common.NewExtractionError(url, ce.config.MaxAttempts, lastErr)
}

// extractOnce performs one full navigate-replay-extract sequence on a
// fresh, isolated session.
func (ce *ContentExtractor) extractOnce(ctx context.Context, url string, interactions []models.Interaction, selector string) (string, error) {
	session, err := ce.sessions.NewSession(ctx)
	if err != nil {
		return "", common.WrapError(err, "failed to acquire page session")
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			ce.logger.Debug().Err(closeErr).Msg("Failed to close page session")
		}
	}()

	if err := session.Navigate(ctx, url); err != nil {
		return "", err
	}

	if err := sleepCtx(ctx, time.Duration(ce.config.InitialSettleMillis)*time.Millisecond); err != nil {
		return "", err
	}

	if err := ce.replayInteractions(ctx, session, interactions); err != nil {
		return "", err
	}

	raw, err := session.Eval(ctx, buildExtractionScript(selector))
	if err != nil {
		return "", err
	}

	return NormalizeText(raw), nil
}

// replayInteractions executes the recorded steps strictly in ascending
// order index. Each step may trigger asynchronous page mutation, so steps
// run sequentially with a settle delay after each one.
func (ce *ContentExtractor) replayInteractions(ctx context.Context, session PageSession, interactions []models.Interaction) error {
	if len(interactions) == 0 {
		return nil
	}

	ordered := make([]models.Interaction, len(interactions))
	copy(ordered, interactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	for _, interaction := range ordered {
		js := buildInteractionScript(interaction)
		if js == "" {
			// Unknown interaction type: advance without waiting.
			ce.logger.Warn().
				Str("type", string(interaction.Type)).
				Int("order_index", interaction.OrderIndex).
				Msg("Skipping unknown interaction type")
			continue
		}

		if _, err := session.Eval(ctx, js); err != nil {
			return common.WrapErrorf(err, "interaction %d (%s) failed", interaction.OrderIndex, interaction.Type)
		}

		if err := sleepCtx(ctx, time.Duration(ce.config.InteractionSettleMillis)*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// buildInteractionScript maps an interaction to its injected script.
// Returns "" for unknown types.
func buildInteractionScript(interaction models.Interaction) string {
	switch interaction.Type {
	case models.InteractionClick:
		return buildClickScript(interaction.Selector)
	case models.InteractionInput:
		return buildInputScript(interaction.Selector, interaction.Value)
	default:
		return ""
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

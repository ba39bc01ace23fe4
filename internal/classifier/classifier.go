// Package classifier turns freshly extracted content into a check outcome
// by comparing fingerprints against the monitor's stored baseline.
package classifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/hasher"
	"github.com/aleister1102/webpursuer/internal/models"
)

// AICapability is the language-model surface the classifier may consult.
// Both calls can fail; the classifier degrades instead of propagating.
type AICapability interface {
	// Interpret rewrites content according to a monitor instruction.
	Interpret(ctx context.Context, instruction, content string) (string, error)
	// CheckCondition evaluates a yes/no predicate against content.
	CheckCondition(ctx context.Context, prompt, content string) (bool, error)
}

// ChangeClassifier derives SUCCESS/UNCHANGED/CHANGED outcomes. It has no
// side effects beyond the AI calls it makes; persistence and notification
// dispatch belong to the orchestrator.
type ChangeClassifier struct {
	ai     AICapability
	logger zerolog.Logger
}

// NewChangeClassifier creates a classifier. The AI capability may be nil
// when no monitor uses interpretation or gating.
func NewChangeClassifier(ai AICapability, logger zerolog.Logger) *ChangeClassifier {
	return &ChangeClassifier{
		ai:     ai,
		logger: logger.With().Str("component", "ChangeClassifier").Logger(),
	}
}

// Classify compares extracted text against the monitor's stored
// fingerprint.
//
// When AI interpretation is enabled the fingerprint is computed over the
// interpreted content and the raw extraction is carried alongside; an
// interpretation failure falls back to the raw text with a logged error.
// A gating condition can only suppress the notification. It never
// changes the stored result or fingerprint, and a failed condition call
// fails closed (condition treated as not met).
func (cc *ChangeClassifier) Classify(ctx context.Context, m *models.Monitor, extractedText string) models.ClassifiedCheck {
	content, rawContent := cc.interpret(ctx, m, extractedText)

	outcome := models.ClassifiedCheck{
		Content:    content,
		RawContent: rawContent,
		NewHash:    hasher.Fingerprint(content),
	}

	switch {
	case m.LastContentHash == "":
		outcome.Result = models.ResultSuccess
		outcome.Message = "Initial check successful."
	case m.LastContentHash == outcome.NewHash:
		outcome.Result = models.ResultUnchanged
		outcome.Message = "No changes detected."
	default:
		outcome.Result = models.ResultChanged
		outcome.Message = "Content changed!"
		outcome.Notify = true
		cc.applyConditionGate(ctx, m, &outcome)
	}

	return outcome
}

func (cc *ChangeClassifier) interpret(ctx context.Context, m *models.Monitor, extractedText string) (content, rawContent string) {
	if !m.AIEnabled || m.AIPrompt == "" || cc.ai == nil {
		return extractedText, ""
	}

	interpreted, err := cc.ai.Interpret(ctx, m.AIPrompt, extractedText)
	if err != nil {
		cc.logger.Error().Err(err).
			Int64("monitor_id", m.ID).
			Str("monitor_name", m.Name).
			Msg("AI interpretation failed, falling back to raw content")
		return extractedText, ""
	}

	return interpreted, extractedText
}

func (cc *ChangeClassifier) applyConditionGate(ctx context.Context, m *models.Monitor, outcome *models.ClassifiedCheck) {
	if !m.AIConditionEnabled || m.AIConditionPrompt == "" {
		return
	}

	// Fail closed: a condition that cannot be evaluated, whether the call
	// fails or no capability is configured at all, must never notify.
	met := false
	if cc.ai == nil {
		cc.logger.Warn().
			Int64("monitor_id", m.ID).
			Str("monitor_name", m.Name).
			Msg("AI condition gating requested but no AI capability configured, treating condition as not met")
	} else {
		var err error
		met, err = cc.ai.CheckCondition(ctx, m.AIConditionPrompt, outcome.Content)
		if err != nil {
			cc.logger.Error().Err(err).
				Int64("monitor_id", m.ID).
				Str("monitor_name", m.Name).
				Msg("AI condition check failed, treating condition as not met")
			met = false
		}
	}

	if !met {
		outcome.Notify = false
		outcome.Message = "Content changed! (AI condition not met, notification suppressed)"
	}
}

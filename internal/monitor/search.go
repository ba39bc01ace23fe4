package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/models"
	"github.com/aleister1102/webpursuer/internal/notifier"
	"github.com/aleister1102/webpursuer/internal/schedule"
)

// SearchAI is the capability surface standing searches run against.
type SearchAI interface {
	// Search answers a prompt with web-search augmentation.
	Search(ctx context.Context, prompt string) (string, error)
	// CheckCondition evaluates a yes/no predicate against content.
	CheckCondition(ctx context.Context, prompt, content string) (bool, error)
}

// SearchStore is the persistence surface the search runner needs.
type SearchStore interface {
	ListEnabledSearches() ([]*models.Search, error)
	AppendSearchLog(log *models.SearchLog) (int64, error)
	UpdateSearchRunTime(id int64, runTime int64) error
}

// SearchRunner executes due standing searches. Each run asks the
// web-search-augmented model, logs the reply and optionally notifies,
// gated by the search's own condition prompt.
type SearchRunner struct {
	store     SearchStore
	ai        SearchAI
	sink      NotificationSink
	evaluator *schedule.Evaluator
	logger    zerolog.Logger

	now func() time.Time
}

// NewSearchRunner creates the runner. sink may be nil.
func NewSearchRunner(
	store SearchStore,
	searchAI SearchAI,
	sink NotificationSink,
	evaluator *schedule.Evaluator,
	logger zerolog.Logger,
) *SearchRunner {
	return &SearchRunner{
		store:     store,
		ai:        searchAI,
		sink:      sink,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "SearchRunner").Logger(),
		now:       time.Now,
	}
}

// RunDue evaluates all enabled searches once and runs the due ones
// sequentially. A failed run leaves LastRunTime untouched so the next
// pass retries it.
func (sr *SearchRunner) RunDue(ctx context.Context) {
	searches, err := sr.store.ListEnabledSearches()
	if err != nil {
		sr.logger.Error().Err(err).Msg("Failed to list searches for pass")
		return
	}

	nowMillis := sr.now().UnixMilli()
	for _, s := range searches {
		if ctx.Err() != nil {
			return
		}
		if !sr.evaluator.IsSearchDue(s, nowMillis) {
			continue
		}
		if err := sr.runOne(ctx, s); err != nil {
			sr.logger.Warn().Err(err).
				Int64("search_id", s.ID).
				Str("title", s.Title).
				Msg("Search run failed")
		}
	}
}

func (sr *SearchRunner) runOne(ctx context.Context, s *models.Search) error {
	result, err := sr.ai.Search(ctx, s.Prompt)
	if err != nil {
		return err
	}

	var conditionMet *bool
	shouldNotify := s.NotificationEnabled
	title, message := "Search Result", "New search result for: "+s.Prompt

	if s.AIConditionEnabled && s.AIConditionPrompt != "" {
		met, condErr := sr.ai.CheckCondition(ctx, s.AIConditionPrompt, result)
		if condErr != nil {
			// Fail closed, same as the change classifier's gate.
			sr.logger.Error().Err(condErr).
				Int64("search_id", s.ID).
				Msg("Search condition check failed, treating condition as not met")
			met = false
		}
		conditionMet = &met
		shouldNotify = s.NotificationEnabled && met
		title, message = "Search Alert", "Condition met for search: "+s.Prompt
	}

	runAt := sr.now().UnixMilli()
	if _, err := sr.store.AppendSearchLog(&models.SearchLog{
		SearchID:     s.ID,
		Timestamp:    runAt,
		ResultText:   result,
		ConditionMet: conditionMet,
	}); err != nil {
		return err
	}
	if err := sr.store.UpdateSearchRunTime(s.ID, runAt); err != nil {
		return err
	}
	s.LastRunTime = runAt

	if shouldNotify && sr.sink != nil {
		n := notifier.BuildSearchNotification(title, message, result)
		if err := sr.sink.Notify(ctx, n); err != nil {
			// Delivery failure never fails the run; the result is logged.
			sr.logger.Error().Err(err).
				Int64("search_id", s.ID).
				Str("correlation_id", n.CorrelationID).
				Msg("Failed to deliver search notification")
		}
	}

	sr.logger.Info().
		Int64("search_id", s.ID).
		Str("title", s.Title).
		Msg("Search run completed")
	return nil
}

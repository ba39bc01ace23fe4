// Package monitor runs the check pipeline: extraction, classification,
// persistence and notification dispatch for each watched page.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/models"
	"github.com/aleister1102/webpursuer/internal/notifier"
)

// ContentSource produces the visible text of a monitored page fragment.
type ContentSource interface {
	Extract(ctx context.Context, url string, interactions []models.Interaction, selector string) (string, error)
}

// Classifier turns extracted text into a check outcome.
type Classifier interface {
	Classify(ctx context.Context, m *models.Monitor, extractedText string) models.ClassifiedCheck
}

// CheckStore is the persistence surface the orchestrator needs.
type CheckStore interface {
	AppendCheckLog(log *models.CheckLog) (int64, error)
	UpdateCheckState(id int64, checkTime int64, contentHash string) error
}

// NotificationSink delivers change alerts.
type NotificationSink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// CheckOrchestrator executes one full check for a monitor. Per-monitor
// mutexes serialize overlapping runs of the same monitor.
type CheckOrchestrator struct {
	extractor  ContentSource
	classifier Classifier
	store      CheckStore
	notifier   NotificationSink
	mutexes    *MonitorMutexManager
	logger     zerolog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewCheckOrchestrator creates a CheckOrchestrator. The notifier may be
// nil when notifications are disabled globally.
func NewCheckOrchestrator(
	extractor ContentSource,
	classifier Classifier,
	store CheckStore,
	sink NotificationSink,
	logger zerolog.Logger,
) *CheckOrchestrator {
	return &CheckOrchestrator{
		extractor:  extractor,
		classifier: classifier,
		store:      store,
		notifier:   sink,
		mutexes:    NewMonitorMutexManager(logger),
		logger:     logger.With().Str("component", "CheckOrchestrator").Logger(),
		now:        time.Now,
	}
}

// RunCheck executes the full pipeline for one monitor and returns the
// persisted log entry. An extraction failure produces a FAILURE log and
// leaves the monitor's stored fingerprint and last check time untouched.
// The returned error reports why the check could not complete; a
// completed check with a CHANGED result is not an error.
func (co *CheckOrchestrator) RunCheck(ctx context.Context, m *models.Monitor) (log *models.CheckLog, err error) {
	mutex := co.mutexes.GetMutex(m.ID)
	mutex.Lock()
	defer mutex.Unlock()

	// A panic anywhere in the pipeline must not take the scheduler down;
	// it is recorded as a failed check instead.
	defer func() {
		if r := recover(); r != nil {
			co.logger.Error().
				Interface("panic", r).
				Int64("monitor_id", m.ID).
				Msg("Check pipeline panicked")
			log, err = co.recordFailure(m, fmt.Sprintf("Check failed: internal error: %v", r))
		}
	}()

	co.logger.Debug().
		Int64("monitor_id", m.ID).
		Str("url", m.URL).
		Msg("Starting check")

	extractedText, extractErr := co.extractor.Extract(ctx, m.URL, m.Interactions, m.Selector)
	if extractErr != nil {
		co.logger.Warn().Err(extractErr).
			Int64("monitor_id", m.ID).
			Str("url", m.URL).
			Msg("Content extraction failed")
		failLog, recordErr := co.recordFailure(m, fmt.Sprintf("Check failed: %v", extractErr))
		if recordErr != nil {
			return nil, recordErr
		}
		return failLog, extractErr
	}

	outcome := co.classifier.Classify(ctx, m, extractedText)
	checkTime := co.now().UnixMilli()

	entry := &models.CheckLog{
		MonitorID:  m.ID,
		Timestamp:  checkTime,
		Result:     outcome.Result,
		Message:    outcome.Message,
		Content:    outcome.Content,
		RawContent: outcome.RawContent,
	}
	if _, err := co.store.AppendCheckLog(entry); err != nil {
		return nil, err
	}

	if err := co.store.UpdateCheckState(m.ID, checkTime, outcome.NewHash); err != nil {
		return entry, err
	}

	// Keep the in-memory copy in step so a scheduler pass holding this
	// monitor sees the fresh baseline.
	m.LastCheckTime = checkTime
	m.LastContentHash = outcome.NewHash

	co.logger.Info().
		Int64("monitor_id", m.ID).
		Str("result", string(outcome.Result)).
		Msg("Check completed")

	co.dispatchNotification(ctx, m, outcome)
	return entry, nil
}

// CleanupMutexes drops per-monitor mutexes for IDs no longer present.
func (co *CheckOrchestrator) CleanupMutexes(activeIDs []int64) {
	co.mutexes.CleanupUnusedMutexes(activeIDs)
}

func (co *CheckOrchestrator) recordFailure(m *models.Monitor, message string) (*models.CheckLog, error) {
	entry := &models.CheckLog{
		MonitorID: m.ID,
		Timestamp: co.now().UnixMilli(),
		Result:    models.ResultFailure,
		Message:   message,
	}
	if _, err := co.store.AppendCheckLog(entry); err != nil {
		co.logger.Error().Err(err).
			Int64("monitor_id", m.ID).
			Msg("Failed to persist failure log")
		return nil, err
	}
	return entry, nil
}

func (co *CheckOrchestrator) dispatchNotification(ctx context.Context, m *models.Monitor, outcome models.ClassifiedCheck) {
	if !outcome.Notify || !m.NotificationEnabled || co.notifier == nil {
		return
	}

	n := notifier.BuildChangeNotification(m, outcome)
	if err := co.notifier.Notify(ctx, n); err != nil {
		// Delivery problems never fail the check itself.
		co.logger.Error().Err(err).
			Int64("monitor_id", m.ID).
			Str("correlation_id", n.CorrelationID).
			Msg("Failed to deliver change notification")
	}
}

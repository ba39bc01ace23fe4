package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/models"
	"github.com/aleister1102/webpursuer/internal/notifier"
)

// stateKeyLastReport is the app_state key holding the unix-millis
// timestamp of the last delivered digest.
const stateKeyLastReport = "last_report_time"

// ReportConfig holds daily digest settings.
type ReportConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Hour is the local hour (0..23) after which the daily digest may
	// be generated.
	Hour int `json:"hour,omitempty" yaml:"hour,omitempty" validate:"omitempty,min=0,max=23"`
	// MonitorIDs restricts the digest to the listed monitors. Empty
	// means all monitors.
	MonitorIDs []int64 `json:"monitor_ids,omitempty" yaml:"monitor_ids,omitempty"`
}

// NewDefaultReportConfig creates default report configuration
func NewDefaultReportConfig() ReportConfig {
	return ReportConfig{
		Enabled: false,
		Hour:    8,
	}
}

// ReportStore is the persistence surface the reporter needs.
type ReportStore interface {
	GetChangedLogsSince(sinceTS int64) ([]*models.CheckLog, error)
	GetMonitor(id int64) (*models.Monitor, error)
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// ReportAI generates the digest text.
type ReportAI interface {
	GenerateReport(ctx context.Context, prompt string) (string, error)
}

// Reporter produces at most one digest per day summarizing all CHANGED
// checks since the previous digest.
type Reporter struct {
	cfg    ReportConfig
	store  ReportStore
	ai     ReportAI
	sink   NotificationSink
	loc    *time.Location
	logger zerolog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewReporter creates a Reporter. A nil location falls back to the
// local timezone.
func NewReporter(cfg ReportConfig, store ReportStore, ai ReportAI, sink NotificationSink, loc *time.Location, logger zerolog.Logger) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{
		cfg:    cfg,
		store:  store,
		ai:     ai,
		sink:   sink,
		loc:    loc,
		logger: logger.With().Str("component", "Reporter").Logger(),
		now:    time.Now,
	}
}

// MaybeRun generates and delivers the daily digest when it is due.
// Generation failures leave the last-report marker untouched so the
// next pass retries.
func (r *Reporter) MaybeRun(ctx context.Context) {
	if !r.cfg.Enabled || r.ai == nil || r.sink == nil {
		return
	}

	now := r.now().In(r.loc)
	target := time.Date(now.Year(), now.Month(), now.Day(), r.cfg.Hour, 0, 0, 0, r.loc)
	if now.Before(target) {
		return
	}

	lastMillis := r.lastReportMillis()
	if lastMillis >= target.UnixMilli() {
		return
	}

	since := lastMillis
	if since == 0 {
		since = target.Add(-24 * time.Hour).UnixMilli()
	}

	changed, err := r.store.GetChangedLogsSince(since)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to collect changed logs for digest")
		return
	}
	changed = r.filterMonitors(changed)

	if len(changed) == 0 {
		// Nothing to report; mark the day as done so we do not re-query
		// every pass.
		r.markDone(now)
		return
	}

	digest, err := r.ai.GenerateReport(ctx, r.buildDigestInput(changed))
	if err != nil {
		r.logger.Error().Err(err).Msg("Digest generation failed, will retry next pass")
		return
	}

	title := fmt.Sprintf("Daily change report (%d changes)", len(changed))
	if err := r.sink.Notify(ctx, notifier.BuildReportNotification(title, digest)); err != nil {
		r.logger.Error().Err(err).Msg("Digest delivery failed, will retry next pass")
		return
	}

	r.markDone(now)
	r.logger.Info().Int("changes", len(changed)).Msg("Daily digest delivered")
}

func (r *Reporter) filterMonitors(changed []*models.CheckLog) []*models.CheckLog {
	if len(r.cfg.MonitorIDs) == 0 {
		return changed
	}

	wanted := make(map[int64]struct{}, len(r.cfg.MonitorIDs))
	for _, id := range r.cfg.MonitorIDs {
		wanted[id] = struct{}{}
	}

	filtered := changed[:0]
	for _, log := range changed {
		if _, ok := wanted[log.MonitorID]; ok {
			filtered = append(filtered, log)
		}
	}
	return filtered
}

func (r *Reporter) lastReportMillis() int64 {
	raw, err := r.store.GetState(stateKeyLastReport)
	if err != nil || raw == "" {
		return 0
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return millis
}

func (r *Reporter) markDone(now time.Time) {
	if err := r.store.SetState(stateKeyLastReport, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist last report time")
	}
}

// buildDigestInput renders the change list as plain text for the model.
// Monitor names are resolved best-effort; a deleted monitor falls back
// to its ID.
func (r *Reporter) buildDigestInput(changed []*models.CheckLog) string {
	var sb strings.Builder
	for _, log := range changed {
		name := fmt.Sprintf("monitor %d", log.MonitorID)
		if m, err := r.store.GetMonitor(log.MonitorID); err == nil && m != nil {
			name = fmt.Sprintf("%s (%s)", m.Name, m.URL)
		}

		ts := time.UnixMilli(log.Timestamp).In(r.loc).Format("2006-01-02 15:04")
		fmt.Fprintf(&sb, "[%s] %s: %s\n", ts, name, log.Message)
		if log.Content != "" {
			content := log.Content
			if len(content) > 500 {
				// Back up to a rune boundary so the digest stays valid UTF-8.
				cut := 500
				for cut > 0 && !utf8.RuneStart(content[cut]) {
					cut--
				}
				content = content[:cut] + "…"
			}
			sb.WriteString(content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

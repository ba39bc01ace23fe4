package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/limiter"
	"github.com/aleister1102/webpursuer/internal/models"
	"github.com/aleister1102/webpursuer/internal/schedule"
)

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	Enabled     bool `json:"enabled" yaml:"enabled"`
	TickSeconds int  `json:"tick_seconds,omitempty" yaml:"tick_seconds,omitempty" validate:"omitempty,min=1"`
	// ConnectivityURL is probed before each pass; an unreachable network
	// defers the pass instead of burning failed checks. Empty disables
	// the probe.
	ConnectivityURL string `json:"connectivity_url,omitempty" yaml:"connectivity_url,omitempty" validate:"omitempty,url"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         true,
		TickSeconds:     60,
		ConnectivityURL: "https://clients3.google.com/generate_204",
	}
}

// MonitorLister supplies the candidate set for due evaluation.
type MonitorLister interface {
	ListEnabledMonitors() ([]*models.Monitor, error)
}

// CheckRunner executes checks for due monitors.
type CheckRunner interface {
	RunCheck(ctx context.Context, m *models.Monitor) (*models.CheckLog, error)
	CleanupMutexes(activeIDs []int64)
}

// ResourceGuard gates a pass on system pressure.
type ResourceGuard interface {
	Evaluate() limiter.Verdict
}

// ReportRunner is invoked once per pass and decides internally whether a
// digest is due.
type ReportRunner interface {
	MaybeRun(ctx context.Context)
}

// SearchCycle runs due standing searches once per pass.
type SearchCycle interface {
	RunDue(ctx context.Context)
}

// Service is the periodic scheduler: every tick it evaluates which
// enabled monitors are due and runs their checks sequentially. One
// browser page at a time keeps resource usage predictable.
type Service struct {
	cfg       SchedulerConfig
	store     MonitorLister
	evaluator *schedule.Evaluator
	runner    CheckRunner
	guard     ResourceGuard
	searches  SearchCycle
	reporter  ReportRunner
	logger    zerolog.Logger

	httpClient *http.Client
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool
}

// NewService creates the scheduler service. guard, searches and reporter
// may be nil.
func NewService(
	cfg SchedulerConfig,
	store MonitorLister,
	evaluator *schedule.Evaluator,
	runner CheckRunner,
	guard ResourceGuard,
	searches SearchCycle,
	reporter ReportRunner,
	logger zerolog.Logger,
) *Service {
	if cfg.TickSeconds <= 0 {
		cfg.TickSeconds = 60
	}

	return &Service{
		cfg:        cfg,
		store:      store,
		evaluator:  evaluator,
		runner:     runner,
		guard:      guard,
		searches:   searches,
		reporter:   reporter,
		logger:     logger.With().Str("component", "SchedulerService").Logger(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Start launches the ticker loop. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || !s.cfg.Enabled {
		s.mu.Unlock()
		if !s.cfg.Enabled {
			s.logger.Info().Msg("Scheduler disabled by configuration")
		}
		return
	}
	s.running = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.logger.Info().
		Int("tick_seconds", s.cfg.TickSeconds).
		Msg("Scheduler started")
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.cfg.TickSeconds) * time.Second)
	defer ticker.Stop()

	// First pass immediately so a restart does not wait out a full tick.
	s.RunPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass evaluates all enabled monitors once and checks the due ones
// sequentially. Exported so a manual "check now" trigger can share the
// exact scheduler semantics.
func (s *Service) RunPass(ctx context.Context) {
	if s.guard != nil {
		if verdict := s.guard.Evaluate(); !verdict.Allowed {
			s.logger.Warn().Str("reason", verdict.Reason).Msg("Pass deferred by resource guard")
			return
		}
	}

	if !s.online(ctx) {
		s.logger.Warn().Msg("Network unreachable, deferring pass")
		return
	}

	monitors, err := s.store.ListEnabledMonitors()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list monitors for pass")
		return
	}

	nowMillis := time.Now().UnixMilli()
	due := 0
	activeIDs := make([]int64, 0, len(monitors))
	for _, m := range monitors {
		activeIDs = append(activeIDs, m.ID)
		if ctx.Err() != nil {
			return
		}
		if !s.evaluator.IsDue(m, nowMillis) {
			continue
		}
		due++
		if _, err := s.runner.RunCheck(ctx, m); err != nil {
			s.logger.Warn().Err(err).
				Int64("monitor_id", m.ID).
				Str("url", m.URL).
				Msg("Scheduled check failed")
		}
	}

	s.runner.CleanupMutexes(activeIDs)

	if due > 0 {
		s.logger.Debug().
			Int("due", due).
			Int("enabled", len(monitors)).
			Msg("Scheduler pass completed")
	}

	if s.searches != nil {
		s.searches.RunDue(ctx)
	}

	if s.reporter != nil {
		s.reporter.MaybeRun(ctx)
	}
}

// online probes the configured connectivity URL. Probe disabled or any
// HTTP response at all counts as online; only transport errors defer.
func (s *Service) online(ctx context.Context) bool {
	if s.cfg.ConnectivityURL == "" {
		return true
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, s.cfg.ConnectivityURL, nil)
	if err != nil {
		return true
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

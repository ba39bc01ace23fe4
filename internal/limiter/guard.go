// Package limiter gates scheduler work on system resource pressure.
// A headless browser restart under memory pressure is far more
// expensive than a skipped pass, so the guard errs on the side of
// deferring.
package limiter

import (
	"runtime"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// Config holds resource guard settings.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// SystemMemThreshold is the fraction of system memory (0..1) above
	// which checks are deferred.
	SystemMemThreshold float64 `json:"system_mem_threshold,omitempty" yaml:"system_mem_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	MaxGoroutines      int     `json:"max_goroutines,omitempty" yaml:"max_goroutines,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultConfig creates default resource guard configuration
func NewDefaultConfig() Config {
	return Config{
		Enabled:            true,
		SystemMemThreshold: 0.9,
		MaxGoroutines:      2000,
	}
}

// Verdict is the outcome of one guard evaluation.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Guard decides whether a scheduler pass may run checks right now.
type Guard struct {
	cfg    Config
	logger zerolog.Logger

	// Overridable in tests.
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	numGoroutine  func() int
}

// NewGuard creates a resource guard.
func NewGuard(cfg Config, logger zerolog.Logger) *Guard {
	if cfg.SystemMemThreshold == 0 {
		cfg.SystemMemThreshold = 0.9
	}
	if cfg.MaxGoroutines == 0 {
		cfg.MaxGoroutines = 2000
	}

	return &Guard{
		cfg:           cfg,
		logger:        logger.With().Str("component", "ResourceGuard").Logger(),
		virtualMemory: mem.VirtualMemory,
		numGoroutine:  runtime.NumGoroutine,
	}
}

// Evaluate reports whether checks may proceed. Stat collection failures
// allow the pass; only observed pressure defers work.
func (g *Guard) Evaluate() Verdict {
	if !g.cfg.Enabled {
		return Verdict{Allowed: true}
	}

	if n := g.numGoroutine(); n > g.cfg.MaxGoroutines {
		g.logger.Warn().Int("goroutines", n).Int("limit", g.cfg.MaxGoroutines).
			Msg("Goroutine count over limit, deferring checks")
		return Verdict{Allowed: false, Reason: "goroutine count over limit"}
	}

	vmStat, err := g.virtualMemory()
	if err != nil {
		g.logger.Warn().Err(err).Msg("Failed to read system memory stats, allowing pass")
		return Verdict{Allowed: true}
	}

	usedFraction := vmStat.UsedPercent / 100.0
	if usedFraction > g.cfg.SystemMemThreshold {
		g.logger.Warn().
			Float64("used_percent", vmStat.UsedPercent).
			Float64("threshold", g.cfg.SystemMemThreshold*100).
			Msg("System memory pressure, deferring checks")
		return Verdict{Allowed: false, Reason: "system memory pressure"}
	}

	return Verdict{Allowed: true}
}

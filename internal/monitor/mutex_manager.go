package monitor

import (
	"sync"

	"github.com/rs/zerolog"
)

// MonitorMutexManager hands out per-monitor mutexes so the same monitor
// is never checked concurrently, even when a manual check overlaps a
// scheduled pass.
type MonitorMutexManager struct {
	logger   zerolog.Logger
	mutexes  map[int64]*sync.Mutex
	mapMutex sync.RWMutex
}

// NewMonitorMutexManager creates a new MonitorMutexManager
func NewMonitorMutexManager(logger zerolog.Logger) *MonitorMutexManager {
	return &MonitorMutexManager{
		logger:  logger.With().Str("component", "MonitorMutexManager").Logger(),
		mutexes: make(map[int64]*sync.Mutex),
	}
}

// GetMutex gets or creates a mutex for a monitor using double-checked locking
func (mm *MonitorMutexManager) GetMutex(monitorID int64) *sync.Mutex {
	if mutex := mm.tryGetExistingMutex(monitorID); mutex != nil {
		return mutex
	}
	return mm.getOrCreateMutex(monitorID)
}

// CleanupUnusedMutexes removes mutexes for monitors that no longer exist
func (mm *MonitorMutexManager) CleanupUnusedMutexes(activeIDs []int64) {
	activeSet := make(map[int64]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		activeSet[id] = struct{}{}
	}

	mm.mapMutex.Lock()
	defer mm.mapMutex.Unlock()

	removed := 0
	for id := range mm.mutexes {
		if _, isActive := activeSet[id]; !isActive {
			delete(mm.mutexes, id)
			removed++
		}
	}

	if removed > 0 {
		mm.logger.Debug().
			Int("removed_mutexes", removed).
			Int("remaining_mutexes", len(mm.mutexes)).
			Msg("Cleaned up unused monitor check mutexes")
	}
}

func (mm *MonitorMutexManager) tryGetExistingMutex(monitorID int64) *sync.Mutex {
	mm.mapMutex.RLock()
	defer mm.mapMutex.RUnlock()

	return mm.mutexes[monitorID]
}

func (mm *MonitorMutexManager) getOrCreateMutex(monitorID int64) *sync.Mutex {
	mm.mapMutex.Lock()
	defer mm.mapMutex.Unlock()

	// Double-check: another goroutine might have created it.
	if mutex, exists := mm.mutexes[monitorID]; exists {
		return mutex
	}

	mm.mutexes[monitorID] = &sync.Mutex{}
	return mm.mutexes[monitorID]
}

// Package schedule decides whether a monitor is due for a check. The
// evaluation is a pure function over the monitor's schedule fields and a
// caller-supplied clock value; it never reads a clock itself and is safe
// to invoke at any cadence.
package schedule

import (
	"time"

	"github.com/aleister1102/webpursuer/internal/models"
)

// WeekdayBit converts a time.Weekday to the bit index of the monitor
// weekday mask: Monday=0 .. Sunday=6. Every reader and writer of the mask
// goes through this one conversion.
func WeekdayBit(day time.Weekday) int {
	// time.Weekday is Sunday=0..Saturday=6.
	return (int(day) + 6) % 7
}

// Evaluator computes due-ness for monitors.
type Evaluator struct {
	// loc is the location used to derive "today" from the supplied
	// instant. Defaults to time.Local.
	loc *time.Location
}

// NewEvaluator creates an evaluator resolving days in the given location.
// A nil location falls back to time.Local.
func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{loc: loc}
}

// IsDue reports whether the monitor should be checked at nowMillis
// (unix milliseconds). Callers must supply a non-decreasing now across a
// process lifetime.
//
//   - Disabled monitors are never due.
//   - SPECIFIC_TIME fires at most once per enabled weekday: due iff now
//     has passed today's target instant and the last check predates it.
//   - INTERVAL with no prior check waits for today's anchor time; with a
//     prior check it fires once the interval has elapsed. Non-positive
//     intervals are never due.
//
// Malformed schedule fields degrade to "not due" instead of failing the
// surrounding pass.
func (e *Evaluator) IsDue(m *models.Monitor, nowMillis int64) bool {
	return e.isDue(spec{
		enabled:         m.Enabled,
		scheduleType:    m.ScheduleType,
		intervalMinutes: m.IntervalMinutes,
		hour:            m.ScheduleHour,
		minute:          m.ScheduleMinute,
		days:            m.ScheduleDays,
		lastRun:         m.LastCheckTime,
	}, nowMillis)
}

// IsSearchDue reports whether a standing search should run at nowMillis.
// Searches follow the exact monitor schedule semantics with LastRunTime
// in place of the last check time.
func (e *Evaluator) IsSearchDue(sr *models.Search, nowMillis int64) bool {
	return e.isDue(spec{
		enabled:         sr.Enabled,
		scheduleType:    sr.ScheduleType,
		intervalMinutes: sr.IntervalMinutes,
		hour:            sr.ScheduleHour,
		minute:          sr.ScheduleMinute,
		days:            sr.ScheduleDays,
		lastRun:         sr.LastRunTime,
	}, nowMillis)
}

// spec is the schedule-relevant field set shared by monitors and
// standing searches.
type spec struct {
	enabled         bool
	scheduleType    models.ScheduleType
	intervalMinutes int64
	hour, minute    int
	days            int
	lastRun         int64
}

func (e *Evaluator) isDue(sp spec, nowMillis int64) bool {
	if !sp.enabled {
		return false
	}

	switch sp.scheduleType {
	case models.ScheduleSpecificTime:
		return e.isSpecificTimeDue(sp, nowMillis)
	case models.ScheduleInterval:
		return e.isIntervalDue(sp, nowMillis)
	default:
		return false
	}
}

func (e *Evaluator) isSpecificTimeDue(sp spec, nowMillis int64) bool {
	if !validClockFields(sp) {
		return false
	}

	now := time.UnixMilli(nowMillis).In(e.loc)
	if sp.days&(1<<WeekdayBit(now.Weekday())) == 0 {
		return false
	}

	target := e.todayTarget(now, sp.hour, sp.minute)
	// Comparing the last run against today's target re-arms the
	// schedule automatically the next day.
	return nowMillis >= target && sp.lastRun < target
}

func (e *Evaluator) isIntervalDue(sp spec, nowMillis int64) bool {
	if sp.intervalMinutes <= 0 {
		return false
	}

	if sp.lastRun == 0 {
		// First run is gated by today's anchor time, not immediate.
		if !validClockFields(sp) {
			return false
		}
		now := time.UnixMilli(nowMillis).In(e.loc)
		return nowMillis >= e.todayTarget(now, sp.hour, sp.minute)
	}

	return nowMillis-sp.lastRun >= sp.intervalMinutes*60_000
}

// todayTarget returns the unix-millisecond instant of hour:minute on the
// day containing now.
func (e *Evaluator) todayTarget(now time.Time, hour, minute int) int64 {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, e.loc)
	return target.UnixMilli()
}

func validClockFields(sp spec) bool {
	return sp.hour >= 0 && sp.hour <= 23 &&
		sp.minute >= 0 && sp.minute <= 59
}

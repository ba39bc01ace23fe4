package models

// ScheduleType determines how a monitor's due time is derived.
type ScheduleType string

const (
	// ScheduleInterval re-checks every IntervalMinutes, anchored at
	// ScheduleHour:ScheduleMinute for the very first run.
	ScheduleInterval ScheduleType = "INTERVAL"
	// ScheduleSpecificTime checks once per enabled weekday at
	// ScheduleHour:ScheduleMinute.
	ScheduleSpecificTime ScheduleType = "SPECIFIC_TIME"
)

// InteractionType is the kind of scripted browser action.
type InteractionType string

const (
	InteractionClick InteractionType = "click"
	InteractionInput InteractionType = "input"
)

// Interaction is one scripted browser action replayed before extraction.
// Owned by its monitor; OrderIndex defines strict replay order.
type Interaction struct {
	ID         int64           `json:"id"`
	MonitorID  int64           `json:"monitor_id"`
	Type       InteractionType `json:"type"`
	Selector   string          `json:"selector"`
	Value      string          `json:"value,omitempty"`
	OrderIndex int             `json:"order_index"`
}

// Monitor describes a watched page fragment: where to find it, how to
// reach it and when to check it.
//
// Invariant: LastCheckTime == 0 implies LastContentHash == "".
type Monitor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
	Enabled  bool   `json:"enabled"`

	ScheduleType    ScheduleType `json:"schedule_type"`
	IntervalMinutes int64        `json:"interval_minutes"`
	ScheduleHour    int          `json:"schedule_hour"`
	ScheduleMinute  int          `json:"schedule_minute"`
	// ScheduleDays is a 7-bit weekday mask, Monday=bit0 .. Sunday=bit6.
	ScheduleDays int `json:"schedule_days"`

	// LastCheckTime is the wall-clock timestamp (unix millis) of the last
	// executed check. 0 means never checked.
	LastCheckTime int64 `json:"last_check_time"`
	// LastContentHash is the fingerprint of the last observed content.
	// Empty means no content observed yet.
	LastContentHash string `json:"last_content_hash,omitempty"`

	AIEnabled          bool   `json:"ai_enabled"`
	AIPrompt           string `json:"ai_prompt,omitempty"`
	AIConditionEnabled bool   `json:"ai_condition_enabled"`
	AIConditionPrompt  string `json:"ai_condition_prompt,omitempty"`

	NotificationEnabled bool `json:"notification_enabled"`

	Interactions []Interaction `json:"interactions,omitempty"`
}

// HasSchedule reports whether the monitor's weekday mask allows at
// least one day.
func (m *Monitor) HasSchedule() bool {
	return m.ScheduleDays&0x7F != 0
}

package models

// Search is a standing AI query: a prompt run on its own schedule against
// the web-search-augmented model, with each result logged.
type Search struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Prompt  string `json:"prompt"`
	Enabled bool   `json:"enabled"`

	ScheduleType    ScheduleType `json:"schedule_type"`
	IntervalMinutes int64        `json:"interval_minutes"`
	ScheduleHour    int          `json:"schedule_hour"`
	ScheduleMinute  int          `json:"schedule_minute"`
	// ScheduleDays is a 7-bit weekday mask, Monday=bit0 .. Sunday=bit6.
	ScheduleDays int `json:"schedule_days"`

	// LastRunTime is the wall-clock timestamp (unix millis) of the last
	// completed run. 0 means never run.
	LastRunTime int64 `json:"last_run_time"`

	AIConditionEnabled bool   `json:"ai_condition_enabled"`
	AIConditionPrompt  string `json:"ai_condition_prompt,omitempty"`

	NotificationEnabled bool `json:"notification_enabled"`
}

// SearchLog records one completed run of a standing search.
type SearchLog struct {
	ID        int64  `json:"id"`
	SearchID  int64  `json:"search_id"`
	Timestamp int64  `json:"timestamp"`
	// ResultText is the model's reply for the run.
	ResultText string `json:"result_text"`
	// ConditionMet is nil when the search carries no gating condition.
	ConditionMet *bool `json:"condition_met,omitempty"`
}

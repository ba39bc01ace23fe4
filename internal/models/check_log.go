package models

// CheckResult is the terminal outcome of one executed check.
type CheckResult string

const (
	// ResultSuccess is the first ever observation of a monitor's content.
	ResultSuccess CheckResult = "SUCCESS"
	// ResultUnchanged means the fingerprint matched the stored one.
	ResultUnchanged CheckResult = "UNCHANGED"
	// ResultChanged means the fingerprint differs from the stored one.
	ResultChanged CheckResult = "CHANGED"
	// ResultFailure means extraction (or an unexpected error) prevented a
	// comparison; the monitor's stored state is left untouched.
	ResultFailure CheckResult = "FAILURE"
)

// CheckLog is the immutable record of one executed check. Append-only;
// deleted only via cascade when its monitor is deleted.
type CheckLog struct {
	ID        int64       `json:"id"`
	MonitorID int64       `json:"monitor_id"`
	Timestamp int64       `json:"timestamp"`
	Result    CheckResult `json:"result"`
	Message   string      `json:"message"`
	// Content is the (possibly AI-interpreted) snapshot the fingerprint
	// was computed over.
	Content string `json:"content,omitempty"`
	// RawContent is the pre-interpretation snapshot. Empty unless AI
	// interpretation rewrote the content.
	RawContent string `json:"raw_content,omitempty"`
}

// ClassifiedCheck is a classifier outcome before persistence. The
// orchestrator turns it into a CheckLog plus the monitor state update.
type ClassifiedCheck struct {
	Content    string
	RawContent string
	Result     CheckResult
	Message    string
	NewHash    string
	Notify     bool
}

package models

// DiffClass classifies a single diff line.
type DiffClass int

const (
	// DiffUnchanged indicates a line present in both versions.
	DiffUnchanged DiffClass = 0
	// DiffAdded indicates a line only present in the new version.
	DiffAdded DiffClass = 1
	// DiffRemoved indicates a line only present in the old version.
	DiffRemoved DiffClass = -1
)

// String returns the display name of the diff class.
func (dc DiffClass) String() string {
	switch dc {
	case DiffAdded:
		return "added"
	case DiffRemoved:
		return "removed"
	default:
		return "unchanged"
	}
}

// DiffLine is one line of a line-level diff in forward order.
type DiffLine struct {
	Content string    `json:"content"`
	Class   DiffClass `json:"class"`
}

// DiffFilterMode selects which diff line classes a presentation keeps.
type DiffFilterMode string

const (
	DiffFilterAll       DiffFilterMode = "ALL"
	DiffFilterAdded     DiffFilterMode = "ADDED"
	DiffFilterRemoved   DiffFilterMode = "REMOVED"
	DiffFilterUnchanged DiffFilterMode = "UNCHANGED"
)

package differ

import "github.com/aleister1102/webpursuer/internal/models"

// FilterLines applies a presentation filter to a diff script. Pure
// post-processing; the diff itself is never recomputed.
func FilterLines(lines []models.DiffLine, mode models.DiffFilterMode) []models.DiffLine {
	if mode == models.DiffFilterAll || mode == "" {
		return lines
	}

	var keep models.DiffClass
	switch mode {
	case models.DiffFilterAdded:
		keep = models.DiffAdded
	case models.DiffFilterRemoved:
		keep = models.DiffRemoved
	case models.DiffFilterUnchanged:
		keep = models.DiffUnchanged
	default:
		return lines
	}

	filtered := make([]models.DiffLine, 0, len(lines))
	for _, line := range lines {
		if line.Class == keep {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

// DiffStats summarizes a diff script for log lines and notifications.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
}

// CalculateStats counts lines per class.
func CalculateStats(lines []models.DiffLine) DiffStats {
	var stats DiffStats
	for _, line := range lines {
		switch line.Class {
		case models.DiffAdded:
			stats.Added++
		case models.DiffRemoved:
			stats.Removed++
		default:
			stats.Unchanged++
		}
	}
	return stats
}

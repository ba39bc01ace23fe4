// Package differ produces the line-level diff used to present changes
// between two content snapshots, plus presentation helpers (class filter,
// intra-line refinement).
package differ

import (
	"strings"

	"github.com/aleister1102/webpursuer/internal/models"
)

// LineDiffer computes an ordered edit script between two texts using a
// longest-common-subsequence table over lines.
type LineDiffer struct{}

// NewLineDiffer creates a new LineDiffer
func NewLineDiffer() *LineDiffer {
	return &LineDiffer{}
}

// Diff splits both texts into lines and returns the edit script in
// forward order. The traversal tie-break is fixed: when an added and a
// removed line compete, the added line is consumed first whenever
// dp[i][j-1] >= dp[i-1][j]. Rendering depends on this being stable.
//
// O(n*m) time and space; callers with very large inputs must pre-truncate.
func (ld *LineDiffer) Diff(oldText, newText string) []models.DiffLine {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	dp := buildLCSTable(oldLines, newLines)

	// Walk the table backward, then reverse into forward order.
	result := make([]models.DiffLine, 0, len(oldLines)+len(newLines))
	i, j := len(oldLines), len(newLines)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && oldLines[i-1] == newLines[j-1]:
			result = append(result, models.DiffLine{Content: oldLines[i-1], Class: models.DiffUnchanged})
			i--
			j--
		case j > 0 && (i == 0 || dp[i][j-1] >= dp[i-1][j]):
			result = append(result, models.DiffLine{Content: newLines[j-1], Class: models.DiffAdded})
			j--
		default:
			result = append(result, models.DiffLine{Content: oldLines[i-1], Class: models.DiffRemoved})
			i--
		}
	}

	reverseLines(result)
	return result
}

// buildLCSTable fills dp[i][j] = length of the LCS of oldLines[0..i) and
// newLines[0..j) using the standard recurrence.
func buildLCSTable(oldLines, newLines []string) [][]int {
	dp := make([][]int, len(oldLines)+1)
	for i := range dp {
		dp[i] = make([]int, len(newLines)+1)
	}

	for i := 1; i <= len(oldLines); i++ {
		for j := 1; j <= len(newLines); j++ {
			if oldLines[i-1] == newLines[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}
	return dp
}

// splitLines performs a plain line split. An empty text has no lines,
// so diffing two empty texts yields an empty script.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func reverseLines(lines []models.DiffLine) {
	for a, b := 0, len(lines)-1; a < b; a, b = a+1, b-1 {
		lines[a], lines[b] = lines[b], lines[a]
	}
}

package notifier

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/aleister1102/webpursuer/internal/differ"
	"github.com/aleister1102/webpursuer/internal/models"
)

// BuildChangeNotification formats the alert sent when a monitored page
// changed. Each notification carries a fresh correlation ID so delivery
// can be traced across logs and the receiving end.
func BuildChangeNotification(monitor *models.Monitor, check models.ClassifiedCheck) models.Notification {
	body := check.Message
	if check.Content != "" {
		body = fmt.Sprintf("%s\n\n%s", check.Message, truncate(check.Content, 1500))
	}

	return models.Notification{
		CorrelationID: uuid.NewString(),
		Title:         fmt.Sprintf("%s (%s)", monitor.Name, monitor.URL),
		Body:          body,
	}
}

// BuildDiffSummary renders a one-line summary of a diff for inclusion
// in notification bodies.
func BuildDiffSummary(lines []models.DiffLine) string {
	stats := differ.CalculateStats(lines)
	return fmt.Sprintf("+%d -%d lines", stats.Added, stats.Removed)
}

// BuildSearchNotification formats the result of a standing search run.
func BuildSearchNotification(title, message, result string) models.Notification {
	body := message
	if result != "" {
		body = fmt.Sprintf("%s\n\n%s", message, truncate(result, 1500))
	}

	return models.Notification{
		CorrelationID: uuid.NewString(),
		Title:         title,
		Body:          body,
	}
}

// BuildReportNotification wraps a generated digest for delivery.
func BuildReportNotification(title, body string) models.Notification {
	return models.Notification{
		CorrelationID: uuid.NewString(),
		Title:         title,
		Body:          truncate(body, 4000),
	}
}

// truncate cuts s to at most max bytes, backing up to a rune boundary so
// the payload stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}

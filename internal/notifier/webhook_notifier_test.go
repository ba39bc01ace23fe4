package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/webpursuer/internal/models"
)

func fastNotifier(cfg Config) *WebhookNotifier {
	wn := NewWebhookNotifier(cfg, zerolog.Nop(), &http.Client{Timeout: 5 * time.Second})
	wn.backoff.BaseDelay = time.Millisecond
	wn.backoff.MaxDelay = 2 * time.Millisecond
	return wn
}

func TestWebhookNotifier_DeliversPayload(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wn := fastNotifier(Config{Enabled: true, WebhookURL: server.URL, RetryAttempts: 2})

	n := models.Notification{
		CorrelationID: "corr-1",
		Title:         "Shop price (https://example.com/item)",
		Body:          "Content changed!",
	}
	require.NoError(t, wn.Notify(context.Background(), n))

	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, n.Body, got.Body)
}

func TestWebhookNotifier_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wn := fastNotifier(Config{Enabled: true, WebhookURL: server.URL, RetryAttempts: 3})

	err := wn.Notify(context.Background(), models.Notification{CorrelationID: "corr-2", Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookNotifier_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	wn := fastNotifier(Config{Enabled: true, WebhookURL: server.URL, RetryAttempts: 3})

	err := wn.Notify(context.Background(), models.Notification{CorrelationID: "corr-3", Title: "t", Body: "b"})
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNotifier_DisabledSkips(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("disabled notifier must not call the webhook")
	}))
	defer server.Close()

	wn := fastNotifier(Config{Enabled: false, WebhookURL: server.URL})
	assert.NoError(t, wn.Notify(context.Background(), models.Notification{Title: "t"}))
}

func TestWebhookNotifier_EmptyURLSkips(t *testing.T) {
	wn := fastNotifier(Config{Enabled: true})
	assert.NoError(t, wn.Notify(context.Background(), models.Notification{Title: "t"}))
}

func TestBuildChangeNotification(t *testing.T) {
	monitor := &models.Monitor{Name: "Shop price", URL: "https://example.com/item"}
	check := models.ClassifiedCheck{
		Message: "Content changed!",
		Content: "Laptop 899 EUR",
	}

	n := BuildChangeNotification(monitor, check)

	assert.NotEmpty(t, n.CorrelationID)
	assert.Equal(t, "Shop price (https://example.com/item)", n.Title)
	assert.Contains(t, n.Body, "Content changed!")
	assert.Contains(t, n.Body, "Laptop 899 EUR")

	// Correlation IDs must be unique per notification.
	other := BuildChangeNotification(monitor, check)
	assert.NotEqual(t, n.CorrelationID, other.CorrelationID)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	// A cut falling inside a multi-byte rune must back up to the rune
	// start instead of emitting invalid UTF-8.
	assert.Equal(t, "a…", truncate("a€€", 2))
	assert.Equal(t, "a€…", truncate("a€€", 5))

	long := strings.Repeat("ä", 800)
	cut := truncate(long, 1499)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("ä", 749)+"…", cut)
}

func TestBuildChangeNotification_MultiByteContent(t *testing.T) {
	monitor := &models.Monitor{Name: "Preis", URL: "https://example.com"}
	check := models.ClassifiedCheck{
		Message: "Content changed!",
		Content: strings.Repeat("€", 600),
	}

	n := BuildChangeNotification(monitor, check)
	assert.True(t, utf8.ValidString(n.Body))
}

func TestBuildDiffSummary(t *testing.T) {
	lines := []models.DiffLine{
		{Content: "a", Class: models.DiffUnchanged},
		{Content: "b", Class: models.DiffAdded},
		{Content: "c", Class: models.DiffAdded},
		{Content: "d", Class: models.DiffRemoved},
	}
	assert.Equal(t, "+2 -1 lines", BuildDiffSummary(lines))
}

package monitor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/webpursuer/internal/models"
)

type fakeReportStore struct {
	changed   []*models.CheckLog
	changedAt []int64
	monitors  map[int64]*models.Monitor
	state     map[string]string
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{
		monitors: make(map[int64]*models.Monitor),
		state:    make(map[string]string),
	}
}

func (f *fakeReportStore) GetChangedLogsSince(sinceTS int64) ([]*models.CheckLog, error) {
	f.changedAt = append(f.changedAt, sinceTS)
	var out []*models.CheckLog
	for _, log := range f.changed {
		if log.Timestamp >= sinceTS {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeReportStore) GetMonitor(id int64) (*models.Monitor, error) {
	return f.monitors[id], nil
}

func (f *fakeReportStore) GetState(key string) (string, error) {
	return f.state[key], nil
}

func (f *fakeReportStore) SetState(key, value string) error {
	f.state[key] = value
	return nil
}

type fakeReportAI struct {
	digest string
	err    error
	inputs []string
}

func (f *fakeReportAI) GenerateReport(_ context.Context, prompt string) (string, error) {
	f.inputs = append(f.inputs, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.digest, nil
}

func newTestReporter(store ReportStore, reportAI ReportAI, sink NotificationSink, at time.Time) *Reporter {
	r := NewReporter(ReportConfig{Enabled: true, Hour: 8}, store, reportAI, sink, time.UTC, zerolog.Nop())
	r.now = func() time.Time { return at }
	return r
}

// tenAM is a fixed instant past the 08:00 report hour.
var tenAM = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func TestReporter_DeliversDigest(t *testing.T) {
	store := newFakeReportStore()
	store.monitors[1] = &models.Monitor{ID: 1, Name: "Shop price", URL: "https://example.com/item"}
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-2 * time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "Content changed!", Content: "v2"},
	}
	reportAI := &fakeReportAI{digest: "One price change on Shop price."}
	sink := &fakeSink{}

	r := newTestReporter(store, reportAI, sink, tenAM)
	r.MaybeRun(context.Background())

	require.Len(t, sink.sent, 1)
	assert.Contains(t, sink.sent[0].Title, "Daily change report")
	assert.Equal(t, "One price change on Shop price.", sink.sent[0].Body)

	require.Len(t, reportAI.inputs, 1)
	assert.Contains(t, reportAI.inputs[0], "Shop price (https://example.com/item)")

	assert.Equal(t, strconv.FormatInt(tenAM.UnixMilli(), 10), store.state[stateKeyLastReport])
}

func TestReporter_DigestInputStaysValidUTF8(t *testing.T) {
	store := newFakeReportStore()
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged,
			Message: "Content changed!", Content: strings.Repeat("€", 200)},
	}
	reportAI := &fakeReportAI{digest: "d"}

	r := newTestReporter(store, reportAI, &fakeSink{}, tenAM)
	r.MaybeRun(context.Background())

	require.Len(t, reportAI.inputs, 1)
	assert.True(t, utf8.ValidString(reportAI.inputs[0]),
		"content truncation must not split a rune")
	assert.Contains(t, reportAI.inputs[0], "…")
}

func TestReporter_NotDueBeforeHour(t *testing.T) {
	store := newFakeReportStore()
	store.changed = []*models.CheckLog{{MonitorID: 1, Timestamp: 1, Result: models.ResultChanged}}
	sink := &fakeSink{}

	sevenAM := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	r := newTestReporter(store, &fakeReportAI{digest: "d"}, sink, sevenAM)
	r.MaybeRun(context.Background())

	assert.Empty(t, sink.sent)
	assert.Empty(t, store.state)
}

func TestReporter_OncePerDay(t *testing.T) {
	store := newFakeReportStore()
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "m"},
	}
	sink := &fakeSink{}

	r := newTestReporter(store, &fakeReportAI{digest: "d"}, sink, tenAM)
	r.MaybeRun(context.Background())
	r.MaybeRun(context.Background())

	assert.Len(t, sink.sent, 1)
}

func TestReporter_GenerationFailureRetriesNextPass(t *testing.T) {
	store := newFakeReportStore()
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "m"},
	}
	reportAI := &fakeReportAI{err: errors.New("model unavailable")}
	sink := &fakeSink{}

	r := newTestReporter(store, reportAI, sink, tenAM)
	r.MaybeRun(context.Background())

	assert.Empty(t, sink.sent)
	assert.Empty(t, store.state, "a failed digest must not consume the day")

	// Model back up: the next pass delivers.
	reportAI.err = nil
	reportAI.digest = "d"
	r.MaybeRun(context.Background())
	assert.Len(t, sink.sent, 1)
}

func TestReporter_NoChangesMarksDayDone(t *testing.T) {
	store := newFakeReportStore()
	sink := &fakeSink{}

	r := newTestReporter(store, &fakeReportAI{digest: "d"}, sink, tenAM)
	r.MaybeRun(context.Background())

	assert.Empty(t, sink.sent)
	assert.NotEmpty(t, store.state[stateKeyLastReport])
}

func TestReporter_CollectsSinceLastReport(t *testing.T) {
	store := newFakeReportStore()
	lastReport := tenAM.Add(-26 * time.Hour)
	store.state[stateKeyLastReport] = strconv.FormatInt(lastReport.UnixMilli(), 10)
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "m"},
	}
	sink := &fakeSink{}

	r := newTestReporter(store, &fakeReportAI{digest: "d"}, sink, tenAM)
	r.MaybeRun(context.Background())

	require.Len(t, store.changedAt, 1)
	assert.Equal(t, lastReport.UnixMilli(), store.changedAt[0])
	assert.Len(t, sink.sent, 1)
}

func TestReporter_MonitorIDFilter(t *testing.T) {
	store := newFakeReportStore()
	store.changed = []*models.CheckLog{
		{MonitorID: 1, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "m1"},
		{MonitorID: 2, Timestamp: tenAM.Add(-time.Hour).UnixMilli(), Result: models.ResultChanged, Message: "m2"},
	}
	reportAI := &fakeReportAI{digest: "d"}
	sink := &fakeSink{}

	r := newTestReporter(store, reportAI, sink, tenAM)
	r.cfg.MonitorIDs = []int64{2}
	r.MaybeRun(context.Background())

	require.Len(t, reportAI.inputs, 1)
	assert.NotContains(t, reportAI.inputs[0], "m1")
	assert.Contains(t, reportAI.inputs[0], "m2")
}

func TestReporter_DisabledIsNoop(t *testing.T) {
	store := newFakeReportStore()
	sink := &fakeSink{}

	r := NewReporter(ReportConfig{Enabled: false}, store, &fakeReportAI{digest: "d"}, sink, time.UTC, zerolog.Nop())
	r.MaybeRun(context.Background())

	assert.Empty(t, sink.sent)
	assert.Empty(t, store.changedAt)
}

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/webpursuer/internal/models"
	"github.com/aleister1102/webpursuer/internal/schedule"
)

type fakeSearchStore struct {
	searches []*models.Search
	logs     []*models.SearchLog
	runTimes map[int64]int64
	listErr  error
}

func newFakeSearchStore(searches ...*models.Search) *fakeSearchStore {
	return &fakeSearchStore{searches: searches, runTimes: make(map[int64]int64)}
}

func (f *fakeSearchStore) ListEnabledSearches() ([]*models.Search, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.searches, nil
}

func (f *fakeSearchStore) AppendSearchLog(log *models.SearchLog) (int64, error) {
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeSearchStore) UpdateSearchRunTime(id int64, runTime int64) error {
	f.runTimes[id] = runTime
	return nil
}

type fakeSearchAI struct {
	reply        string
	searchErr    error
	conditionMet bool
	conditionErr error

	searchCalls    int
	conditionCalls int
}

func (f *fakeSearchAI) Search(_ context.Context, _ string) (string, error) {
	f.searchCalls++
	return f.reply, f.searchErr
}

func (f *fakeSearchAI) CheckCondition(_ context.Context, _, _ string) (bool, error) {
	f.conditionCalls++
	return f.conditionMet, f.conditionErr
}

var searchRunAt = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestSearchRunner(store SearchStore, searchAI SearchAI, sink NotificationSink) *SearchRunner {
	sr := NewSearchRunner(store, searchAI, sink, schedule.NewEvaluator(time.UTC), zerolog.Nop())
	sr.now = func() time.Time { return searchRunAt }
	return sr
}

// dueSearch is always due: INTERVAL anchored at midnight, never run.
func dueSearch(id int64) *models.Search {
	return &models.Search{
		ID:                  id,
		Title:               "Tickets",
		Prompt:              "Are tickets on sale?",
		Enabled:             true,
		ScheduleType:        models.ScheduleInterval,
		IntervalMinutes:     60,
		ScheduleDays:        127,
		NotificationEnabled: true,
	}
}

func TestSearchRunner_RunsDueSearch(t *testing.T) {
	s := dueSearch(1)
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{reply: "Not yet on sale."}
	sink := &fakeSink{}

	newTestSearchRunner(store, searchAI, sink).RunDue(context.Background())

	assert.Equal(t, 1, searchAI.searchCalls)
	require.Len(t, store.logs, 1)
	assert.Equal(t, int64(1), store.logs[0].SearchID)
	assert.Equal(t, "Not yet on sale.", store.logs[0].ResultText)
	assert.Nil(t, store.logs[0].ConditionMet, "no condition configured")

	assert.Equal(t, searchRunAt.UnixMilli(), store.runTimes[1])
	assert.Equal(t, searchRunAt.UnixMilli(), s.LastRunTime)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "Search Result", sink.sent[0].Title)
	assert.Contains(t, sink.sent[0].Body, "Are tickets on sale?")
	assert.Contains(t, sink.sent[0].Body, "Not yet on sale.")
}

func TestSearchRunner_SkipsNotDueSearch(t *testing.T) {
	s := dueSearch(1)
	s.LastRunTime = searchRunAt.Add(-30 * time.Minute).UnixMilli()
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{reply: "r"}

	newTestSearchRunner(store, searchAI, &fakeSink{}).RunDue(context.Background())

	assert.Zero(t, searchAI.searchCalls)
	assert.Empty(t, store.logs)
}

func TestSearchRunner_ConditionMetNotifiesAlert(t *testing.T) {
	s := dueSearch(1)
	s.AIConditionEnabled = true
	s.AIConditionPrompt = "tickets are purchasable"
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{reply: "On sale now!", conditionMet: true}
	sink := &fakeSink{}

	newTestSearchRunner(store, searchAI, sink).RunDue(context.Background())

	assert.Equal(t, 1, searchAI.conditionCalls)
	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].ConditionMet)
	assert.True(t, *store.logs[0].ConditionMet)

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "Search Alert", sink.sent[0].Title)
	assert.Contains(t, sink.sent[0].Body, "Condition met for search:")
}

func TestSearchRunner_ConditionNotMetSuppressesNotification(t *testing.T) {
	s := dueSearch(1)
	s.AIConditionEnabled = true
	s.AIConditionPrompt = "tickets are purchasable"
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{reply: "Not yet.", conditionMet: false}
	sink := &fakeSink{}

	newTestSearchRunner(store, searchAI, sink).RunDue(context.Background())

	assert.Empty(t, sink.sent)
	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].ConditionMet)
	assert.False(t, *store.logs[0].ConditionMet)
	assert.Equal(t, searchRunAt.UnixMilli(), store.runTimes[1], "result is still logged and the run recorded")
}

func TestSearchRunner_ConditionErrorFailsClosed(t *testing.T) {
	s := dueSearch(1)
	s.AIConditionEnabled = true
	s.AIConditionPrompt = "tickets are purchasable"
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{reply: "maybe", conditionMet: true, conditionErr: errors.New("timeout")}
	sink := &fakeSink{}

	newTestSearchRunner(store, searchAI, sink).RunDue(context.Background())

	assert.Empty(t, sink.sent, "failed condition call must never notify")
	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].ConditionMet)
	assert.False(t, *store.logs[0].ConditionMet)
}

func TestSearchRunner_SearchFailureRetriesNextPass(t *testing.T) {
	s := dueSearch(1)
	store := newFakeSearchStore(s)
	searchAI := &fakeSearchAI{searchErr: errors.New("upstream 500")}
	sink := &fakeSink{}

	runner := newTestSearchRunner(store, searchAI, sink)
	runner.RunDue(context.Background())

	assert.Empty(t, store.logs)
	assert.Empty(t, sink.sent)
	assert.Zero(t, s.LastRunTime, "failed run leaves the schedule armed")

	// Still due on the next pass.
	searchAI.searchErr = nil
	searchAI.reply = "r"
	runner.RunDue(context.Background())
	assert.Len(t, store.logs, 1)
}

func TestSearchRunner_NotificationsOffStillLogs(t *testing.T) {
	s := dueSearch(1)
	s.NotificationEnabled = false
	store := newFakeSearchStore(s)
	sink := &fakeSink{}

	newTestSearchRunner(store, &fakeSearchAI{reply: "r"}, sink).RunDue(context.Background())

	assert.Empty(t, sink.sent)
	assert.Len(t, store.logs, 1)
}

func TestSearchRunner_DeliveryFailureDoesNotFailRun(t *testing.T) {
	s := dueSearch(1)
	store := newFakeSearchStore(s)
	sink := &fakeSink{err: errors.New("webhook down")}

	newTestSearchRunner(store, &fakeSearchAI{reply: "r"}, sink).RunDue(context.Background())

	assert.Len(t, store.logs, 1)
	assert.Equal(t, searchRunAt.UnixMilli(), store.runTimes[1])
}

package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/webpursuer/internal/models"
)

func sampleSearch() *models.Search {
	return &models.Search{
		Title:               "Concert tickets",
		Prompt:              "Are tickets for the spring tour on sale yet?",
		Enabled:             true,
		ScheduleType:        models.ScheduleInterval,
		IntervalMinutes:     60,
		ScheduleDays:        127,
		NotificationEnabled: true,
	}
}

func TestStore_CreateAndGetSearch(t *testing.T) {
	store := newTestStore(t)

	sr := sampleSearch()
	id, err := store.CreateSearch(sr)
	require.NoError(t, err)
	assert.Positive(t, id)

	loaded, err := store.GetSearch(id)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, sr.Title, loaded.Title)
	assert.Equal(t, sr.Prompt, loaded.Prompt)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, models.ScheduleInterval, loaded.ScheduleType)
	assert.Equal(t, int64(60), loaded.IntervalMinutes)
	assert.Zero(t, loaded.LastRunTime)
	assert.True(t, loaded.NotificationEnabled)
}

func TestStore_GetSearch_Unknown(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.GetSearch(404)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_ListEnabledSearches(t *testing.T) {
	store := newTestStore(t)

	active := sampleSearch()
	_, err := store.CreateSearch(active)
	require.NoError(t, err)

	paused := sampleSearch()
	paused.Title = "Paused search"
	paused.Enabled = false
	_, err = store.CreateSearch(paused)
	require.NoError(t, err)

	enabled, err := store.ListEnabledSearches()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, active.ID, enabled[0].ID)

	all, err := store.ListSearches()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_UpdateSearch(t *testing.T) {
	store := newTestStore(t)

	sr := sampleSearch()
	_, err := store.CreateSearch(sr)
	require.NoError(t, err)

	sr.Title = "Festival tickets"
	sr.ScheduleType = models.ScheduleSpecificTime
	sr.ScheduleHour = 9
	sr.AIConditionEnabled = true
	sr.AIConditionPrompt = "tickets are on sale"
	require.NoError(t, store.UpdateSearch(sr))

	loaded, err := store.GetSearch(sr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Festival tickets", loaded.Title)
	assert.Equal(t, models.ScheduleSpecificTime, loaded.ScheduleType)
	assert.Equal(t, 9, loaded.ScheduleHour)
	assert.True(t, loaded.AIConditionEnabled)
	assert.Equal(t, "tickets are on sale", loaded.AIConditionPrompt)
}

func TestStore_UpdateSearchRunTime(t *testing.T) {
	store := newTestStore(t)

	sr := sampleSearch()
	_, err := store.CreateSearch(sr)
	require.NoError(t, err)

	require.NoError(t, store.UpdateSearchRunTime(sr.ID, 1700000000000))

	loaded, err := store.GetSearch(sr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), loaded.LastRunTime)
}

func TestStore_SearchLogs_NewestFirstWithConditionFlag(t *testing.T) {
	store := newTestStore(t)

	sr := sampleSearch()
	_, err := store.CreateSearch(sr)
	require.NoError(t, err)

	met := true
	_, err = store.AppendSearchLog(&models.SearchLog{
		SearchID: sr.ID, Timestamp: 100, ResultText: "no tickets yet"})
	require.NoError(t, err)
	_, err = store.AppendSearchLog(&models.SearchLog{
		SearchID: sr.ID, Timestamp: 200, ResultText: "on sale now", ConditionMet: &met})
	require.NoError(t, err)

	logs, err := store.ListSearchLogs(sr.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "on sale now", logs[0].ResultText)
	require.NotNil(t, logs[0].ConditionMet)
	assert.True(t, *logs[0].ConditionMet)

	assert.Equal(t, "no tickets yet", logs[1].ResultText)
	assert.Nil(t, logs[1].ConditionMet, "runs without a condition leave the flag unset")

	limited, err := store.ListSearchLogs(sr.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_DeleteSearchCascades(t *testing.T) {
	store := newTestStore(t)

	sr := sampleSearch()
	_, err := store.CreateSearch(sr)
	require.NoError(t, err)
	_, err = store.AppendSearchLog(&models.SearchLog{
		SearchID: sr.ID, Timestamp: 100, ResultText: "r"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSearch(sr.ID))

	loaded, err := store.GetSearch(sr.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	logs, err := store.ListSearchLogs(sr.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

package datastore

import (
	"database/sql"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

const searchColumns = `id, title, prompt, enabled, schedule_type,
	interval_minutes, schedule_hour, schedule_minute, schedule_days,
	last_run_time, ai_condition_enabled, ai_condition_prompt,
	notification_enabled`

// CreateSearch inserts a standing search, returning the assigned ID.
func (s *Store) CreateSearch(sr *models.Search) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.db.Exec(`
		INSERT INTO searches (title, prompt, enabled, schedule_type,
			interval_minutes, schedule_hour, schedule_minute, schedule_days,
			last_run_time, ai_condition_enabled, ai_condition_prompt,
			notification_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.Title, sr.Prompt, boolToInt(sr.Enabled), string(sr.ScheduleType),
		sr.IntervalMinutes, sr.ScheduleHour, sr.ScheduleMinute, sr.ScheduleDays,
		sr.LastRunTime, boolToInt(sr.AIConditionEnabled), sr.AIConditionPrompt,
		boolToInt(sr.NotificationEnabled))
	if err != nil {
		return 0, common.NewPersistenceError("create search", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, common.NewPersistenceError("create search", err)
	}

	s.logger.Debug().Int64("search_id", id).Str("title", sr.Title).Msg("Search created")
	sr.ID = id
	return id, nil
}

// GetSearch loads a single search. Returns nil when the ID is unknown.
func (s *Store) GetSearch(id int64) (*models.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+searchColumns+` FROM searches WHERE id = ?`, id)
	sr, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewPersistenceError("get search", err)
	}
	return sr, nil
}

// ListSearches returns all searches ordered by ID.
func (s *Store) ListSearches() ([]*models.Search, error) {
	return s.listSearches(`SELECT ` + searchColumns + ` FROM searches ORDER BY id`)
}

// ListEnabledSearches returns only searches with enabled = true. The
// scheduler uses this as the candidate set for due evaluation.
func (s *Store) ListEnabledSearches() ([]*models.Search, error) {
	return s.listSearches(`SELECT ` + searchColumns + ` FROM searches WHERE enabled = 1 ORDER BY id`)
}

func (s *Store) listSearches(query string) ([]*models.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, common.NewPersistenceError("list searches", err)
	}
	defer rows.Close()

	var searches []*models.Search
	for rows.Next() {
		sr, err := scanSearch(rows)
		if err != nil {
			return nil, common.NewPersistenceError("list searches", err)
		}
		searches = append(searches, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list searches", err)
	}
	return searches, nil
}

// UpdateSearch rewrites all search fields.
func (s *Store) UpdateSearch(sr *models.Search) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.db.Exec(`
		UPDATE searches SET title = ?, prompt = ?, enabled = ?,
			schedule_type = ?, interval_minutes = ?, schedule_hour = ?,
			schedule_minute = ?, schedule_days = ?, last_run_time = ?,
			ai_condition_enabled = ?, ai_condition_prompt = ?,
			notification_enabled = ?
		WHERE id = ?`,
		sr.Title, sr.Prompt, boolToInt(sr.Enabled), string(sr.ScheduleType),
		sr.IntervalMinutes, sr.ScheduleHour, sr.ScheduleMinute, sr.ScheduleDays,
		sr.LastRunTime, boolToInt(sr.AIConditionEnabled), sr.AIConditionPrompt,
		boolToInt(sr.NotificationEnabled), sr.ID)
	if err != nil {
		return common.NewPersistenceError("update search", err)
	}
	return nil
}

// DeleteSearch removes a search. Its logs go with it via the FK cascade.
func (s *Store) DeleteSearch(id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.db.Exec(`DELETE FROM searches WHERE id = ?`, id); err != nil {
		return common.NewPersistenceError("delete search", err)
	}
	s.logger.Debug().Int64("search_id", id).Msg("Search deleted")
	return nil
}

// UpdateSearchRunTime records the completion time of a run.
func (s *Store) UpdateSearchRunTime(id int64, runTime int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.db.Exec(`UPDATE searches SET last_run_time = ? WHERE id = ?`, runTime, id)
	if err != nil {
		return common.NewPersistenceError("update search run time", err)
	}
	return nil
}

// AppendSearchLog records a run result, returning the assigned ID.
func (s *Store) AppendSearchLog(log *models.SearchLog) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conditionMet any
	if log.ConditionMet != nil {
		conditionMet = boolToInt(*log.ConditionMet)
	}

	res, err := s.db.Exec(
		`INSERT INTO search_logs (search_id, timestamp, result_text, condition_met)
		 VALUES (?, ?, ?, ?)`,
		log.SearchID, log.Timestamp, log.ResultText, conditionMet)
	if err != nil {
		return 0, common.NewPersistenceError("append search log", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, common.NewPersistenceError("append search log", err)
	}
	log.ID = id
	return id, nil
}

// ListSearchLogs returns a search's run history, newest first, capped at
// limit (no cap when limit <= 0).
func (s *Store) ListSearchLogs(searchID int64, limit int) ([]*models.SearchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, search_id, timestamp, result_text, condition_met
		FROM search_logs WHERE search_id = ? ORDER BY timestamp DESC`
	args := []any{searchID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, common.NewPersistenceError("list search logs", err)
	}
	defer rows.Close()

	var logs []*models.SearchLog
	for rows.Next() {
		var log models.SearchLog
		var conditionMet sql.NullBool
		if err := rows.Scan(&log.ID, &log.SearchID, &log.Timestamp, &log.ResultText, &conditionMet); err != nil {
			return nil, common.NewPersistenceError("list search logs", err)
		}
		if conditionMet.Valid {
			met := conditionMet.Bool
			log.ConditionMet = &met
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list search logs", err)
	}
	return logs, nil
}

func scanSearch(row rowScanner) (*models.Search, error) {
	var sr models.Search
	var scheduleType string
	var enabled, aiCondEnabled, notifEnabled int
	var aiCondPrompt sql.NullString

	err := row.Scan(&sr.ID, &sr.Title, &sr.Prompt, &enabled, &scheduleType,
		&sr.IntervalMinutes, &sr.ScheduleHour, &sr.ScheduleMinute, &sr.ScheduleDays,
		&sr.LastRunTime, &aiCondEnabled, &aiCondPrompt, &notifEnabled)
	if err != nil {
		return nil, err
	}

	sr.ScheduleType = models.ScheduleType(scheduleType)
	sr.Enabled = enabled != 0
	sr.AIConditionEnabled = aiCondEnabled != 0
	sr.AIConditionPrompt = aiCondPrompt.String
	sr.NotificationEnabled = notifEnabled != 0
	return &sr, nil
}

package datastore

import (
	"database/sql"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

const monitorColumns = `id, name, url, selector, enabled, schedule_type,
	interval_minutes, schedule_hour, schedule_minute, schedule_days,
	last_check_time, last_content_hash, ai_enabled, ai_prompt,
	ai_condition_enabled, ai_condition_prompt, notification_enabled`

// CreateMonitor inserts a monitor and its interactions, returning the
// assigned ID.
func (s *Store) CreateMonitor(m *models.Monitor) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, common.NewPersistenceError("create monitor", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO monitors (name, url, selector, enabled, schedule_type,
			interval_minutes, schedule_hour, schedule_minute, schedule_days,
			last_check_time, last_content_hash, ai_enabled, ai_prompt,
			ai_condition_enabled, ai_condition_prompt, notification_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.URL, m.Selector, boolToInt(m.Enabled), string(m.ScheduleType),
		m.IntervalMinutes, m.ScheduleHour, m.ScheduleMinute, m.ScheduleDays,
		m.LastCheckTime, nullString(m.LastContentHash),
		boolToInt(m.AIEnabled), m.AIPrompt,
		boolToInt(m.AIConditionEnabled), m.AIConditionPrompt,
		boolToInt(m.NotificationEnabled))
	if err != nil {
		return 0, common.NewPersistenceError("create monitor", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, common.NewPersistenceError("create monitor", err)
	}

	if err := insertInteractions(tx, id, m.Interactions); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, common.NewPersistenceError("create monitor", err)
	}

	s.logger.Debug().Int64("monitor_id", id).Str("url", m.URL).Msg("Monitor created")
	m.ID = id
	return id, nil
}

// GetMonitor loads a single monitor with its interactions ordered by
// order_index. Returns nil when the ID is unknown.
func (s *Store) GetMonitor(id int64) (*models.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+monitorColumns+` FROM monitors WHERE id = ?`, id)
	m, err := scanMonitor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewPersistenceError("get monitor", err)
	}

	if err := s.loadInteractions(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMonitors returns all monitors ordered by ID, interactions included.
func (s *Store) ListMonitors() ([]*models.Monitor, error) {
	return s.listMonitors(`SELECT ` + monitorColumns + ` FROM monitors ORDER BY id`)
}

// ListEnabledMonitors returns only monitors with enabled = true. The
// scheduler uses this as the candidate set for due evaluation.
func (s *Store) ListEnabledMonitors() ([]*models.Monitor, error) {
	return s.listMonitors(`SELECT ` + monitorColumns + ` FROM monitors WHERE enabled = 1 ORDER BY id`)
}

func (s *Store) listMonitors(query string) ([]*models.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, common.NewPersistenceError("list monitors", err)
	}
	defer rows.Close()

	var monitors []*models.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, common.NewPersistenceError("list monitors", err)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list monitors", err)
	}

	for _, m := range monitors {
		if err := s.loadInteractions(m); err != nil {
			return nil, err
		}
	}
	return monitors, nil
}

// UpdateMonitor rewrites all monitor fields and replaces its
// interactions in the same transaction.
func (s *Store) UpdateMonitor(m *models.Monitor) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return common.NewPersistenceError("update monitor", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE monitors SET name = ?, url = ?, selector = ?, enabled = ?,
			schedule_type = ?, interval_minutes = ?, schedule_hour = ?,
			schedule_minute = ?, schedule_days = ?, last_check_time = ?,
			last_content_hash = ?, ai_enabled = ?, ai_prompt = ?,
			ai_condition_enabled = ?, ai_condition_prompt = ?,
			notification_enabled = ?
		WHERE id = ?`,
		m.Name, m.URL, m.Selector, boolToInt(m.Enabled), string(m.ScheduleType),
		m.IntervalMinutes, m.ScheduleHour, m.ScheduleMinute, m.ScheduleDays,
		m.LastCheckTime, nullString(m.LastContentHash),
		boolToInt(m.AIEnabled), m.AIPrompt,
		boolToInt(m.AIConditionEnabled), m.AIConditionPrompt,
		boolToInt(m.NotificationEnabled), m.ID)
	if err != nil {
		return common.NewPersistenceError("update monitor", err)
	}

	if _, err := tx.Exec(`DELETE FROM interactions WHERE monitor_id = ?`, m.ID); err != nil {
		return common.NewPersistenceError("update monitor", err)
	}
	if err := insertInteractions(tx, m.ID, m.Interactions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return common.NewPersistenceError("update monitor", err)
	}
	return nil
}

// ReplaceInteractions swaps a monitor's interaction sequence without
// touching other monitor fields.
func (s *Store) ReplaceInteractions(monitorID int64, interactions []models.Interaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return common.NewPersistenceError("replace interactions", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM interactions WHERE monitor_id = ?`, monitorID); err != nil {
		return common.NewPersistenceError("replace interactions", err)
	}
	if err := insertInteractions(tx, monitorID, interactions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return common.NewPersistenceError("replace interactions", err)
	}
	return nil
}

// DeleteMonitor removes a monitor. Interactions and check logs go with
// it via the FK cascade.
func (s *Store) DeleteMonitor(id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.db.Exec(`DELETE FROM monitors WHERE id = ?`, id); err != nil {
		return common.NewPersistenceError("delete monitor", err)
	}
	s.logger.Debug().Int64("monitor_id", id).Msg("Monitor deleted")
	return nil
}

// UpdateCheckState records the outcome of a successful check: last check
// time and content fingerprint move together in one transaction so a
// crash cannot leave them out of step.
func (s *Store) UpdateCheckState(id int64, checkTime int64, contentHash string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.db.Exec(
		`UPDATE monitors SET last_check_time = ?, last_content_hash = ? WHERE id = ?`,
		checkTime, nullString(contentHash), id)
	if err != nil {
		return common.NewPersistenceError("update check state", err)
	}
	return nil
}

func (s *Store) loadInteractions(m *models.Monitor) error {
	rows, err := s.db.Query(
		`SELECT id, monitor_id, type, selector, value, order_index
		 FROM interactions WHERE monitor_id = ? ORDER BY order_index`, m.ID)
	if err != nil {
		return common.NewPersistenceError("load interactions", err)
	}
	defer rows.Close()

	m.Interactions = nil
	for rows.Next() {
		var it models.Interaction
		var itType string
		var value sql.NullString
		if err := rows.Scan(&it.ID, &it.MonitorID, &itType, &it.Selector, &value, &it.OrderIndex); err != nil {
			return common.NewPersistenceError("load interactions", err)
		}
		it.Type = models.InteractionType(itType)
		it.Value = value.String
		m.Interactions = append(m.Interactions, it)
	}
	return rows.Err()
}

func insertInteractions(tx *sql.Tx, monitorID int64, interactions []models.Interaction) error {
	for _, it := range interactions {
		_, err := tx.Exec(
			`INSERT INTO interactions (monitor_id, type, selector, value, order_index)
			 VALUES (?, ?, ?, ?, ?)`,
			monitorID, string(it.Type), it.Selector, it.Value, it.OrderIndex)
		if err != nil {
			return common.NewPersistenceError("insert interaction", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonitor(row rowScanner) (*models.Monitor, error) {
	var m models.Monitor
	var scheduleType string
	var enabled, aiEnabled, aiCondEnabled, notifEnabled int
	var lastHash, aiPrompt, aiCondPrompt sql.NullString

	err := row.Scan(&m.ID, &m.Name, &m.URL, &m.Selector, &enabled, &scheduleType,
		&m.IntervalMinutes, &m.ScheduleHour, &m.ScheduleMinute, &m.ScheduleDays,
		&m.LastCheckTime, &lastHash, &aiEnabled, &aiPrompt,
		&aiCondEnabled, &aiCondPrompt, &notifEnabled)
	if err != nil {
		return nil, err
	}

	m.ScheduleType = models.ScheduleType(scheduleType)
	m.Enabled = enabled != 0
	m.AIEnabled = aiEnabled != 0
	m.AIConditionEnabled = aiCondEnabled != 0
	m.NotificationEnabled = notifEnabled != 0
	m.LastContentHash = lastHash.String
	m.AIPrompt = aiPrompt.String
	m.AIConditionPrompt = aiCondPrompt.String
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

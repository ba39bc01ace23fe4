package datastore

import (
	"database/sql"

	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/models"
)

const checkLogColumns = `id, monitor_id, timestamp, result, message, content, raw_content`

// AppendCheckLog records a check outcome, returning the assigned ID.
func (s *Store) AppendCheckLog(log *models.CheckLog) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.db.Exec(
		`INSERT INTO check_logs (monitor_id, timestamp, result, message, content, raw_content)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		log.MonitorID, log.Timestamp, string(log.Result), log.Message,
		nullString(log.Content), nullString(log.RawContent))
	if err != nil {
		return 0, common.NewPersistenceError("append check log", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, common.NewPersistenceError("append check log", err)
	}
	log.ID = id
	return id, nil
}

// GetCheckLog loads one log entry, nil when absent.
func (s *Store) GetCheckLog(id int64) (*models.CheckLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+checkLogColumns+` FROM check_logs WHERE id = ?`, id)
	log, err := scanCheckLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewPersistenceError("get check log", err)
	}
	return log, nil
}

// ListLogs returns a monitor's history, newest first, capped at limit
// (no cap when limit <= 0).
func (s *Store) ListLogs(monitorID int64, limit int) ([]*models.CheckLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + checkLogColumns + ` FROM check_logs
		WHERE monitor_id = ? ORDER BY timestamp DESC`
	args := []any{monitorID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.queryLogs(query, args...)
}

// GetPreviousLog returns the most recent log strictly before the given
// timestamp. The diff view uses this to find the baseline side of a
// comparison. Returns nil when there is no earlier entry.
func (s *Store) GetPreviousLog(monitorID int64, beforeTS int64) (*models.CheckLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT `+checkLogColumns+` FROM check_logs
		 WHERE monitor_id = ? AND timestamp < ?
		 ORDER BY timestamp DESC LIMIT 1`, monitorID, beforeTS)
	log, err := scanCheckLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.NewPersistenceError("get previous log", err)
	}
	return log, nil
}

// GetChangedLogsSince returns all CHANGED entries across monitors at or
// after the given timestamp, oldest first. The daily report digests
// these.
func (s *Store) GetChangedLogsSince(sinceTS int64) ([]*models.CheckLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLogs(
		`SELECT `+checkLogColumns+` FROM check_logs
		 WHERE result = ? AND timestamp >= ?
		 ORDER BY timestamp ASC`, string(models.ResultChanged), sinceTS)
}

func (s *Store) queryLogs(query string, args ...any) ([]*models.CheckLog, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, common.NewPersistenceError("list check logs", err)
	}
	defer rows.Close()

	var logs []*models.CheckLog
	for rows.Next() {
		log, err := scanCheckLog(rows)
		if err != nil {
			return nil, common.NewPersistenceError("list check logs", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list check logs", err)
	}
	return logs, nil
}

func scanCheckLog(row rowScanner) (*models.CheckLog, error) {
	var log models.CheckLog
	var result string
	var content, rawContent sql.NullString

	err := row.Scan(&log.ID, &log.MonitorID, &log.Timestamp, &result,
		&log.Message, &content, &rawContent)
	if err != nil {
		return nil, err
	}

	log.Result = models.CheckResult(result)
	log.Content = content.String
	log.RawContent = rawContent.String
	return &log, nil
}

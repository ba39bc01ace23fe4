// Package datastore persists monitors, their interactions, check logs
// and standing searches in a sqlite database. All engine access goes
// through this repository; no other component issues queries.
package datastore

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/aleister1102/webpursuer/internal/common"
)

// Config holds storage settings.
type Config struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required"`
}

// NewDefaultConfig creates default storage configuration
func NewDefaultConfig() Config {
	return Config{
		DBPath: "data/webpursuer.db",
	}
}

// Store wraps the sqlite connection. The handle is guarded by a RW lock
// so Backup/Restore can drain in-flight operations and swap the
// underlying database without a sleep-based race.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// NewStore opens (or creates) the database at cfg.DBPath and ensures the
// schema exists.
func NewStore(cfg Config, logger zerolog.Logger) (*Store, error) {
	moduleLogger := logger.With().Str("component", "Store").Logger()
	moduleLogger.Info().Str("db_path", cfg.DBPath).Msg("Initializing database connection")

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, common.WrapErrorf(err, "failed to create database directory %s", dbDir)
	}

	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	store := &Store{
		db:     db,
		path:   cfg.DBPath,
		logger: moduleLogger,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "failed to initialize schema")
	}

	moduleLogger.Info().Str("path", cfg.DBPath).Msg("Database initialized and schema verified")
	return store, nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapErrorf(err, "sql.Open failed for %s", path)
	}
	// Cascading deletes depend on this pragma being set per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "failed to enable foreign keys")
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS monitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		selector TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		schedule_type TEXT NOT NULL DEFAULT 'INTERVAL',
		interval_minutes INTEGER NOT NULL DEFAULT 15,
		schedule_hour INTEGER NOT NULL DEFAULT 0,
		schedule_minute INTEGER NOT NULL DEFAULT 0,
		schedule_days INTEGER NOT NULL DEFAULT 127,
		last_check_time INTEGER NOT NULL DEFAULT 0,
		last_content_hash TEXT,
		ai_enabled INTEGER NOT NULL DEFAULT 0,
		ai_prompt TEXT,
		ai_condition_enabled INTEGER NOT NULL DEFAULT 0,
		ai_condition_prompt TEXT,
		notification_enabled INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		monitor_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		selector TEXT NOT NULL,
		value TEXT,
		order_index INTEGER NOT NULL,
		FOREIGN KEY (monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS check_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		monitor_id INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		result TEXT NOT NULL,
		message TEXT NOT NULL,
		content TEXT,
		raw_content TEXT,
		FOREIGN KEY (monitor_id) REFERENCES monitors(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_check_logs_monitor_ts
		ON check_logs(monitor_id, timestamp DESC);

	CREATE TABLE IF NOT EXISTS searches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		prompt TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		schedule_type TEXT NOT NULL DEFAULT 'INTERVAL',
		interval_minutes INTEGER NOT NULL DEFAULT 60,
		schedule_hour INTEGER NOT NULL DEFAULT 0,
		schedule_minute INTEGER NOT NULL DEFAULT 0,
		schedule_days INTEGER NOT NULL DEFAULT 127,
		last_run_time INTEGER NOT NULL DEFAULT 0,
		ai_condition_enabled INTEGER NOT NULL DEFAULT 0,
		ai_condition_prompt TEXT,
		notification_enabled INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS search_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		search_id INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		result_text TEXT NOT NULL,
		condition_met INTEGER,
		FOREIGN KEY (search_id) REFERENCES searches(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_search_logs_search_ts
		ON search_logs(search_id, timestamp DESC);

	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	_, err := s.db.Exec(schema)
	return err
}

// GetState reads an application state value ("" when absent).
func (s *Store) GetState(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", common.NewPersistenceError("get state", err)
	}
	return value, nil
}

// SetState writes an application state value.
func (s *Store) SetState(key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.db.Exec(
		`INSERT INTO app_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return common.NewPersistenceError("set state", err)
	}
	return nil
}

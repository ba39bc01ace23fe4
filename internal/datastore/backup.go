package datastore

import (
	"io"
	"os"

	"github.com/aleister1102/webpursuer/internal/common"
)

// Backup copies the live database file to destPath. The write lock
// drains in-flight queries and the WAL is checkpointed first, so the
// copy is a consistent snapshot.
func (s *Store) Backup(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return common.NewPersistenceError("backup checkpoint", err)
	}

	if err := copyFile(s.path, destPath); err != nil {
		return common.NewPersistenceError("backup", err)
	}

	s.logger.Info().Str("dest", destPath).Msg("Database backup written")
	return nil
}

// Restore replaces the live database with the file at srcPath. The
// current connection is closed, the file swapped, and a fresh
// connection opened, all under the write lock so no reader ever sees
// the half-swapped state. On any failure the previous database is left
// in place and the store reopened against it.
func (s *Store) Restore(srcPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(srcPath); err != nil {
		return common.NewPersistenceError("restore", err)
	}

	if err := s.db.Close(); err != nil {
		return common.NewPersistenceError("restore close", err)
	}
	s.db = nil

	// Drop WAL sidecars from the old database so the restored file is
	// opened clean.
	_ = os.Remove(s.path + "-wal")
	_ = os.Remove(s.path + "-shm")

	copyErr := copyFile(srcPath, s.path)

	db, openErr := openDatabase(s.path)
	if openErr != nil {
		return common.NewPersistenceError("restore reopen", openErr)
	}
	s.db = db

	if copyErr != nil {
		return common.NewPersistenceError("restore", copyErr)
	}
	if err := s.initSchema(); err != nil {
		return common.NewPersistenceError("restore schema check", err)
	}

	s.logger.Info().Str("src", srcPath).Msg("Database restored from backup")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

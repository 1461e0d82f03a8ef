// Package lastbuilt persists per-source build records between invocations so
// the staleness pass can let downstream processors skip unchanged items. The
// store lives inside the build directory; a missing store means a cold build
// and every item is treated as stale.
package lastbuilt

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed build record store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the record store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open build record store: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			source   TEXT PRIMARY KEY,
			mtime    INTEGER NOT NULL,
			built_at INTEGER NOT NULL
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize build record schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LastModified returns the recorded source modification time, if any.
func (s *Store) LastModified(source string) (time.Time, bool, error) {
	var mtime int64
	err := s.db.QueryRow(`SELECT mtime FROM records WHERE source = ?`, source).Scan(&mtime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("query build record for %s: %w", source, err)
	}
	return time.Unix(mtime, 0), true, nil
}

// Record upserts the build record for a source.
func (s *Store) Record(source string, mtime time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO records (source, mtime, built_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET mtime = excluded.mtime, built_at = excluded.built_at`,
		source, mtime.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record build of %s: %w", source, err)
	}
	return nil
}

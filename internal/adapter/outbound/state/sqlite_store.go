package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// SQLiteStore persists the session record in a single-row SQLite table.
// It is the alternative backend for hosts where a bare credential file is
// unwanted; semantics match FileStore, including absence-on-corruption.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_record (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	payload  TEXT NOT NULL,
	checksum TEXT NOT NULL,
	saved_at TEXT NOT NULL
);`

// OpenSQLiteStore opens (creating if needed) the SQLite database at path
// and ensures the schema exists.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	// A single-record store has no use for connection parallelism, and
	// one connection sidesteps SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads and verifies the stored record.
// No row, invalid JSON, and checksum mismatch all return session.ErrNoSession.
func (s *SQLiteStore) Load() (*session.Session, error) {
	var payload, storedSum string
	err := s.db.QueryRow(`SELECT payload, checksum FROM session_record WHERE id = 1`).
		Scan(&payload, &storedSum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("query session record: %w", err)
	}

	var sr SessionRecord
	if err := json.Unmarshal([]byte(payload), &sr); err != nil {
		s.logger.Warn("stored session payload is not valid JSON, treating as no session")
		return nil, session.ErrNoSession
	}

	sum, err := checksum(sr)
	if err != nil || sum != storedSum {
		s.logger.Warn("stored session failed integrity check, treating as no session")
		return nil, session.ErrNoSession
	}

	rec := Record{Version: recordVersion, Checksum: storedSum, Session: sr}
	if !rec.valid() {
		s.logger.Warn("stored session is incomplete, treating as no session")
		return nil, session.ErrNoSession
	}
	return rec.toSession(), nil
}

// Save upserts the session record into the single row.
func (s *SQLiteStore) Save(sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}

	rec, err := newRecord(sess)
	if err != nil {
		return fmt.Errorf("build session record: %w", err)
	}
	payload, err := json.Marshal(rec.Session)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO session_record (id, payload, checksum, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload  = excluded.payload,
			checksum = excluded.checksum,
			saved_at = excluded.saved_at`,
		string(payload), rec.Checksum, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write session record: %w", err)
	}

	s.logger.Debug("session saved", "backend", "sqlite", "user_id", sess.UserID)
	return nil
}

// Clear removes the stored record. An empty table is not an error.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session_record WHERE id = 1`); err != nil {
		return fmt.Errorf("delete session record: %w", err)
	}
	s.logger.Debug("session cleared", "backend", "sqlite")
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

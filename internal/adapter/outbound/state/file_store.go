package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

// FileStore persists the session record to a single JSON file.
// It provides atomic writes (write-tmp-then-rename), file locking (flock
// for cross-process, mutex for in-process), 0600 permissions, and
// corruption tolerance: any unreadable record loads as ErrNoSession.
// Unlike a config store it keeps no backup copy; credentials should exist
// in exactly one place on disk.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a FileStore for the given file path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Load reads and verifies the session file.
// Missing file, invalid JSON, wrong version, incomplete record, and
// checksum mismatch all return session.ErrNoSession.
func (s *FileStore) Load() (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, session.ErrNoSession
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	// Warn if the credential file has permissions more open than 0600.
	// Skip on Windows where Unix permission bits are not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("session file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("session file is not valid JSON, treating as no session", "path", s.path)
		return nil, session.ErrNoSession
	}
	if rec.Version != recordVersion {
		s.logger.Warn("session file has unknown version, treating as no session",
			"path", s.path, "version", rec.Version)
		return nil, session.ErrNoSession
	}
	if !rec.valid() {
		s.logger.Warn("session file failed integrity check, treating as no session", "path", s.path)
		return nil, session.ErrNoSession
	}

	return rec.toSession(), nil
}

// Save writes the session record to disk atomically.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire flock on path+".lock"
//  3. Marshal the checksummed record as indented JSON
//  4. Write to path+".tmp" with 0600 permissions
//  5. Fsync the temp file
//  6. Rename path+".tmp" -> path
//  7. Release flock
//  8. Release mutex
func (s *FileStore) Save(sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := newRecord(sess)
	if err != nil {
		return fmt.Errorf("build session record: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	// Explicitly ensure 0600 permissions after rename as a safety net.
	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on session file", "error", err)
	}

	s.logger.Debug("session saved", "path", s.path, "user_id", sess.UserID)
	return nil
}

// Clear removes the stored record. A missing file is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	_ = os.Remove(s.path + ".tmp")

	s.logger.Debug("session cleared", "path", s.path)
	return nil
}

// Exists returns true if the session file exists on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}

// lock acquires the cross-process file lock and returns its release
// function. Caller must hold s.mu.
func (s *FileStore) lock() (func(), error) {
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockRecordFile(lockFile.Fd()); err != nil {
		_ = lockFile.Close()
		return nil, fmt.Errorf("acquire file lock: %w", err)
	}
	return func() {
		_ = unlockRecordFile(lockFile.Fd())
		_ = lockFile.Close()
	}, nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it over
// the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to session file: %w", err)
	}
	return nil
}

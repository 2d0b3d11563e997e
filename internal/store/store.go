// Package store persists presentation positions in a local SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"postdeck/internal/fragment"
	"postdeck/internal/logging"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store manages the position database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Session records one presentation run.
type Session struct {
	ID        string
	PostID    string
	StartedAt time.Time
	EndedAt   *time.Time
	Fragment  string
}

// Open creates or opens the position store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("position store opened: %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	-- Last fragment per post; replaced in place, never appended
	CREATE TABLE IF NOT EXISTS positions (
		post_id TEXT PRIMARY KEY,
		fragment TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Presentation runs
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		fragment TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_post ON sessions(post_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := RunMigrations(s.db)
	return err
}

// =============================================================================
// POSITIONS
// =============================================================================

// SaveFragment replaces the stored fragment for postID.
func (s *Store) SaveFragment(postID, frag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO positions (post_id, fragment, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			fragment = excluded.fragment,
			updated_at = excluded.updated_at
	`, postID, frag, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save fragment for %s: %w", postID, err)
	}
	return nil
}

// LoadFragment returns the stored fragment for postID, or "" if none.
func (s *Store) LoadFragment(postID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var frag string
	err := s.db.QueryRow(`SELECT fragment FROM positions WHERE post_id = ?`, postID).Scan(&frag)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load fragment for %s: %w", postID, err)
	}
	return frag, nil
}

// Forget removes the stored fragment for postID.
func (s *Store) Forget(postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM positions WHERE post_id = ?`, postID)
	return err
}

// Location adapts the store to a fragment.Location for one post.
func (s *Store) Location(postID string) fragment.Location {
	return &location{store: s, postID: postID}
}

type location struct {
	store  *Store
	postID string
}

func (l *location) Fragment() (string, error) {
	return l.store.LoadFragment(l.postID)
}

func (l *location) ReplaceFragment(frag string) error {
	return l.store.SaveFragment(l.postID, frag)
}

// =============================================================================
// SESSIONS
// =============================================================================

// StartSession records the start of a presentation run and returns its ID.
func (s *Store) StartSession(postID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	_, err := s.db.Exec(`INSERT INTO sessions (id, post_id, started_at) VALUES (?, ?, ?)`,
		id, postID, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession closes a run with the fragment it ended on.
func (s *Store) EndSession(id, frag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE sessions SET ended_at = ?, fragment = ? WHERE id = ?`,
		time.Now(), frag, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// RecentSessions returns the latest runs for postID, newest first.
func (s *Store) RecentSessions(postID string, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, post_id, started_at, ended_at, fragment
		FROM sessions WHERE post_id = ?
		ORDER BY started_at DESC LIMIT ?
	`, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var ended sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.PostID, &sess.StartedAt, &ended, &sess.Fragment); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

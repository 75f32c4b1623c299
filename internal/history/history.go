package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one saved screenshot
type Entry struct {
	ID             int64     `json:"id"`
	Path           string    `json:"path"`
	Mode           string    `json:"mode"`
	Backend        string    `json:"backend"`
	IncludePointer bool      `json:"include_pointer"`
	WindowShadow   bool      `json:"window_shadow"`
	DelaySeconds   int       `json:"delay_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store keeps the capture history in SQLite
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/kasbah/history.db
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "kasbah", "history.db")
}

// Open opens (creating if needed) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// One writer at a time; the API and CLI may share a process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		mode TEXT NOT NULL,
		backend TEXT,
		include_pointer BOOLEAN,
		window_shadow BOOLEAN,
		delay_seconds INTEGER,
		created_at DATETIME
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create captures table: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e and fills in its ID (and CreatedAt when unset).
func (s *Store) Record(e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO captures (file_path, mode, backend, include_pointer, window_shadow, delay_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.Mode, e.Backend, e.IncludePointer, e.WindowShadow, e.DelaySeconds, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read capture id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns the most recent entries, newest first
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, file_path, mode, backend, include_pointer, window_shadow, delay_seconds, created_at
		FROM captures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var backend sql.NullString
		if err := rows.Scan(&e.ID, &e.Path, &e.Mode, &backend, &e.IncludePointer, &e.WindowShadow, &e.DelaySeconds, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		e.Backend = backend.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries whose file no longer exists and returns how many
// were removed.
func (s *Store) Prune() (int, error) {
	rows, err := s.db.Query("SELECT id, file_path FROM captures")
	if err != nil {
		return 0, fmt.Errorf("failed to list captures: %w", err)
	}

	var stale []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan capture: %w", err)
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.Exec("DELETE FROM captures WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("failed to delete capture %d: %w", id, err)
		}
	}
	return len(stale), nil
}

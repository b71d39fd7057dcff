package phrases

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const slotsSchema = `CREATE TABLE IF NOT EXISTS slots (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
)`

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteSlot stores the slot as one row of a sqlite table.
type SQLiteSlot struct {
	db   *sql.DB
	name string
}

// OpenSQLiteSlot opens (creating if needed) the database at path.
func OpenSQLiteSlot(path, name string) (*SQLiteSlot, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("slot name must be non-empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := openDB("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(slotsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &SQLiteSlot{db: db, name: name}, nil
}

// Read implements Slot.
func (s *SQLiteSlot) Read() ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM slots WHERE name = ?`, s.name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Write implements Slot.
func (s *SQLiteSlot) Write(data []byte) error {
	_, err := s.db.Exec(`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.name, string(data), time.Now())
	return err
}

// Close releases the database.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}

// FileSlot stores the slot as a single JSON file.
type FileSlot struct {
	Path string
}

// Read implements Slot.
func (f FileSlot) Read() ([]byte, bool, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Write implements Slot. The file is replaced atomically.
func (f FileSlot) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	tmp := f.Path + ".part"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// OpenSlot returns the slot for backend ("sqlite" or "file") and a close
// func that is non-nil whenever err is nil.
func OpenSlot(backend, path, name string) (Slot, func() error, error) {
	switch strings.ToLower(backend) {
	case "", "sqlite":
		s, err := OpenSQLiteSlot(path, name)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "file":
		return FileSlot{Path: path}, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (want sqlite or file)", backend)
	}
}

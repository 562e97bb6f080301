package client

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Preference keys.
const (
	PrefTheme        = "theme"
	PrefSystemPrompt = "systemPrompt"
)

// PrefStore is a local key-value store for client preferences (theme,
// system prompt). Read once at startup, written on every change.
type PrefStore struct {
	db *sql.DB
}

// OpenPrefStore opens (and if needed creates) the preference database.
func OpenPrefStore(dbPath string) (*PrefStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &PrefStore{db: db}, nil
}

// Get returns the stored value for key, or "" when unset.
func (s *PrefStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores or replaces the value for key.
func (s *PrefStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// Close closes the underlying database.
func (s *PrefStore) Close() error {
	return s.db.Close()
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/neisii/chatgpt-cli/internal/model"
)

// sqliteSchema holds one active session row and its messages.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    model      TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    id         TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
);
`

// SQLiteStore keeps the session in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu        sync.Mutex
	sessionID string
	model     string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to secure database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}

	// Reuse the most recent session row so Save overwrites it.
	err = db.QueryRow("SELECT id, model FROM sessions ORDER BY updated_at DESC LIMIT 1").Scan(&s.sessionID, &s.model)
	if err == sql.ErrNoRows {
		s.sessionID = uuid.NewString()
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return s, nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// SetModel records the model name written with the next Save.
func (s *SQLiteStore) SetModel(name string) {
	s.mu.Lock()
	s.model = name
	s.mu.Unlock()
}

// Save replaces the stored messages in a single transaction.
func (s *SQLiteStore) Save(msgs []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	_, err = tx.Exec(`
		INSERT INTO sessions (id, version, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, model = excluded.model, updated_at = excluded.updated_at
	`, s.sessionID, FormatVersion, s.model, now, now)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", s.sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO messages (session_id, seq, id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range msgs {
		if _, err := stmt.Exec(s.sessionID, i, m.ID, string(m.Role), m.Content, m.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns the messages of the current session in order.
func (s *SQLiteStore) Load() ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", s.sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if exists == 0 {
		return nil, ErrSessionNotFound
	}

	rows, err := s.db.Query("SELECT id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq", s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			m       model.Message
			role    string
			created int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.Timestamp = time.UnixMilli(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// Model returns the model name of the stored session.
func (s *SQLiteStore) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

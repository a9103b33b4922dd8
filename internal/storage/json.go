// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// SessionFile is the JSON document written by JSONStore.
type SessionFile struct {
	Version   int             `json:"version"`
	Model     string          `json:"model"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []StoredMessage `json:"messages"`
}

// JSONStore keeps the session in a single JSON file.
type JSONStore struct {
	path string

	mu    sync.Mutex
	model string
}

// NewJSONStore creates a store backed by path. The file is created on the
// first Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the session file location.
func (s *JSONStore) Path() string { return s.path }

// SetModel records the model name written with the next Save.
func (s *JSONStore) SetModel(name string) {
	s.mu.Lock()
	s.model = name
	s.mu.Unlock()
}

// Save rewrites the session file atomically with mode 0600.
func (s *JSONStore) Save(msgs []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := SessionFile{
		Version:   FormatVersion,
		Model:     s.model,
		UpdatedAt: time.Now().UTC(),
		Messages:  toStored(msgs),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := util.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads the session file.
func (s *JSONStore) Load() ([]model.Message, error) {
	doc, err := s.LoadFile()
	if err != nil {
		return nil, err
	}
	return fromStored(doc.Messages), nil
}

// LoadFile reads the whole session document, including its metadata.
func (s *JSONStore) LoadFile() (*SessionFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var doc SessionFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.path, err)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("session %s has unsupported version %d", s.path, doc.Version)
	}
	return &doc, nil
}

// Close is a no-op; JSONStore holds no open handles.
func (s *JSONStore) Close() error { return nil }

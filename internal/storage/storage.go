// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/model"
)

// FormatVersion is written into every persisted session.
const FormatVersion = 1

// ErrSessionNotFound is returned by Load when nothing has been saved yet.
var ErrSessionNotFound = errors.New("no saved session")

// Persister loads and saves the message log of the active session.
type Persister interface {
	model.Persister

	// Load returns the saved messages, or ErrSessionNotFound.
	Load() ([]model.Message, error)

	// SetModel records the model name stored alongside the messages.
	SetModel(name string)

	Close() error
}

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredMessage is the on-disk form of a model.Message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func toStored(msgs []model.Message) []StoredMessage {
	out := make([]StoredMessage, len(msgs))
	for i, m := range msgs {
		out[i] = StoredMessage{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

func fromStored(stored []StoredMessage) []model.Message {
	out := make([]model.Message, len(stored))
	for i, s := range stored {
		out[i] = model.Message{
			ID:        s.ID,
			Role:      model.Role(s.Role),
			Content:   s.Content,
			Timestamp: s.Timestamp,
		}
	}
	return out
}

// =============================================================================
// BACKEND SELECTION
// =============================================================================

// Open returns the persister configured by cfg.Session. It returns a nil
// Persister and no error when persistence is disabled.
func Open(cfg *config.Config) (Persister, error) {
	if !cfg.Session.Persist {
		return nil, nil
	}

	path, err := cfg.SessionPath()
	if err != nil {
		return nil, err
	}

	var store Persister
	switch cfg.Session.Backend {
	case config.BackendSQLite:
		store, err = OpenSQLite(path)
	case config.BackendJSON, "":
		store, err = NewJSONStore(path), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
	if err != nil {
		return nil, err
	}
	store.SetModel(cfg.Chat.Model)
	return store, nil
}

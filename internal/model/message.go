// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn. Messages are values; the conversation hands out
// copies, never pointers into its log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Validate checks role and content well-formedness. Empty content is allowed:
// a stream that produced nothing still commits an assistant turn.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return &ValidationError{Field: "role", Message: "unknown role " + quote(string(m.Role))}
	}
	if !utf8.ValidString(m.Content) {
		return &ValidationError{Field: "content", Message: "content is not valid UTF-8 text"}
	}
	return nil
}

func quote(s string) string {
	return "\"" + s + "\""
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"log"
	"sync"
)

// MaxMessages is the maximum number of messages kept in history.
// When exceeded, the oldest non-system turns are pruned.
const MaxMessages = 1000

// DefaultSystemPrompt is used when neither config nor a preset supplies one.
const DefaultSystemPrompt = "You are a helpful assistant. Answer briefly unless asked for details."

// Persister receives the full message log after every mutation.
type Persister interface {
	Save(msgs []Message) error
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered message log of one chat session.
//
// Index 0 is always the active system message. All methods are safe for
// concurrent use, but the log has a single writer in practice: the session
// that appends user turns before an exchange and assistant turns after it.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message

	persister   Persister
	logger      *log.Logger
	lastSaveErr error
}

// NewConversation creates a conversation holding only a system message.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{NewMessage(RoleSystem, systemPrompt)},
	}
}

// Restore rebuilds a conversation from persisted messages. Malformed entries
// are dropped. If the first surviving message is not a system message, one
// carrying fallbackPrompt is inserted, and any later system messages are
// discarded so that exactly one is active.
func Restore(msgs []Message, fallbackPrompt string) *Conversation {
	out := make([]Message, 0, len(msgs)+1)
	for i, m := range msgs {
		if m.Validate() != nil {
			continue
		}
		if m.Role == RoleSystem && (i != 0 || len(out) != 0) {
			continue
		}
		if m.ID == "" {
			m.ID = NewMessage(m.Role, "").ID
		}
		out = append(out, m)
	}
	if len(out) == 0 || out[0].Role != RoleSystem {
		out = append([]Message{NewMessage(RoleSystem, fallbackPrompt)}, out...)
	}
	return &Conversation{messages: out}
}

// SetPersister installs the write-through hook. Save errors are written to
// logger (the standard logger when nil) and never undo the mutation.
func (c *Conversation) SetPersister(p Persister, logger *log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persister = p
	c.logger = logger
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds msg to the end of the log. A system message replaces the
// active system prompt instead of being appended.
func (c *Conversation) Append(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Role == RoleSystem {
		c.messages[0] = msg
	} else {
		c.messages = append(c.messages, msg)
		c.pruneLocked()
	}
	c.persistLocked()
	return nil
}

// AppendUser appends a user turn.
func (c *Conversation) AppendUser(content string) error {
	return c.Append(NewMessage(RoleUser, content))
}

// AppendAssistant appends an assistant turn. Empty content is committed as is.
func (c *Conversation) AppendAssistant(content string) error {
	return c.Append(NewMessage(RoleAssistant, content))
}

// Reset truncates the log to a single system message. With no argument the
// previously active prompt is kept, so calling Reset twice equals calling it once.
func (c *Conversation) Reset(systemPrompt ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prompt := c.messages[0].Content
	if len(systemPrompt) > 0 {
		prompt = systemPrompt[0]
	}
	c.messages = []Message{NewMessage(RoleSystem, prompt)}
	c.persistLocked()
}

// pruneLocked drops the oldest non-system turns beyond MaxMessages.
func (c *Conversation) pruneLocked() {
	if len(c.messages) <= MaxMessages {
		return
	}
	excess := len(c.messages) - MaxMessages
	kept := make([]Message, 0, MaxMessages)
	kept = append(kept, c.messages[0])
	kept = append(kept, c.messages[1+excess:]...)
	c.messages = kept
}

// persistLocked runs while the write lock is held so saves land in mutation order.
func (c *Conversation) persistLocked() {
	if c.persister == nil {
		return
	}
	snapshot := make([]Message, len(c.messages))
	copy(snapshot, c.messages)

	c.lastSaveErr = c.persister.Save(snapshot)
	if c.lastSaveErr != nil {
		logger := c.logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("conversation: save failed: %v", c.lastSaveErr)
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Snapshot returns a copy of the log safe to use as a request payload while
// the conversation keeps changing.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Transcript returns the user and assistant turns, without the system prompt.
func (c *Conversation) Transcript() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages)-1)
	copy(out, c.messages[1:])
	return out
}

// SystemPrompt returns the active system prompt.
func (c *Conversation) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[0].Content
}

// Len returns the number of messages including the system message.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// LastAssistant returns the most recent assistant turn.
func (c *Conversation) LastAssistant() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.messages) - 1; i > 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// LastSaveError returns the error from the most recent write-through save.
func (c *Conversation) LastSaveError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSaveErr
}

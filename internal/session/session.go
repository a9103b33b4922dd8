// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/storage"
	"github.com/neisii/chatgpt-cli/internal/stream"
)

// ModelLister lists the models available to the configured API key.
type ModelLister interface {
	ListModelIDs(ctx context.Context) ([]string, error)
}

// Options configures a Session.
type Options struct {
	Transport stream.Transport
	// Lister backs /models. Optional.
	Lister ModelLister
	// Store persists the conversation. Nil keeps it in memory only.
	Store storage.Persister

	Model        string
	SystemPrompt string
	// ResetSystem starts a fresh conversation with SystemPrompt even when a
	// saved session exists, e.g. when --system or --preset was given.
	ResetSystem bool

	Presets     config.Presets
	IncludeTime bool

	// Logger receives persistence failures. Defaults to the standard logger.
	Logger *log.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one running chat.
type Session struct {
	id        string
	startTime time.Time

	conv      *model.Conversation
	machine   *input.Machine
	transport stream.Transport
	lister    ModelLister
	store     storage.Persister
	logger    *log.Logger
	now       func() time.Time
	restored  bool

	mu          sync.RWMutex
	modelName   string
	presets     config.Presets
	includeTime bool
}

// New creates a session, restoring the saved conversation from opts.Store
// when there is one. A store that fails to load is logged and ignored.
func New(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, &model.ValidationError{Field: "model", Message: "model name is empty"}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = model.DefaultSystemPrompt
	}
	presets := opts.Presets
	if presets == nil {
		presets = config.BuiltinPresets()
	}

	s := &Session{
		id:          uuid.New().String(),
		startTime:   now(),
		machine:     input.NewMachine(),
		transport:   opts.Transport,
		lister:      opts.Lister,
		store:       opts.Store,
		logger:      logger,
		now:         now,
		modelName:   opts.Model,
		presets:     presets.Clone(),
		includeTime: opts.IncludeTime,
	}

	s.conv = model.NewConversation(prompt)
	if opts.Store != nil {
		msgs, err := opts.Store.Load()
		switch {
		case err == nil:
			s.conv = model.Restore(msgs, prompt)
			s.restored = s.conv.Len() > 1
		case errors.Is(err, storage.ErrSessionNotFound):
		default:
			logger.Printf("session: could not restore saved conversation: %v", err)
		}
		opts.Store.SetModel(opts.Model)
		s.conv.SetPersister(opts.Store, logger)
	}
	if opts.ResetSystem {
		s.conv.Reset(prompt)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartTime returns when the session was created.
func (s *Session) StartTime() time.Time { return s.startTime }

// Duration returns how long the session has been running.
func (s *Session) Duration() time.Duration { return s.now().Sub(s.startTime) }

// Restored reports whether earlier turns were loaded from the store.
func (s *Session) Restored() bool { return s.restored }

// Conversation returns the message log.
func (s *Session) Conversation() *model.Conversation { return s.conv }

// Machine returns the input mode machine.
func (s *Session) Machine() *input.Machine { return s.machine }

// Feed passes one line of user input to the input machine.
func (s *Session) Feed(line string) input.Step { return s.machine.Feed(line) }

// Model returns the active model.
func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelName
}

// SetModel switches the active model for later exchanges.
func (s *Session) SetModel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &model.ValidationError{Field: "model", Message: "model name is empty"}
	}
	s.mu.Lock()
	s.modelName = name
	s.mu.Unlock()
	if s.store != nil {
		s.store.SetModel(name)
	}
	return nil
}

// IncludeTime reports whether the local-time hint is sent.
func (s *Session) IncludeTime() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.includeTime
}

// ToggleTime flips the local-time hint and returns the new value.
func (s *Session) ToggleTime() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.includeTime = !s.includeTime
	return s.includeTime
}

// Presets returns a copy of the current presets.
func (s *Session) Presets() config.Presets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presets.Clone()
}

// ReloadPresets replaces the preset table. The active system prompt is not
// touched; a changed preset applies the next time it is selected.
func (s *Session) ReloadPresets(p config.Presets) {
	if p == nil {
		return
	}
	s.mu.Lock()
	s.presets = p.Clone()
	s.mu.Unlock()
}

// SystemPrompt returns the active system prompt.
func (s *Session) SystemPrompt() string { return s.conv.SystemPrompt() }

// LastReply returns the text of the most recent assistant turn, or "" when
// there is none or it is blank.
func (s *Session) LastReply() string {
	msg, ok := s.conv.LastAssistant()
	if !ok || strings.TrimSpace(msg.Content) == "" {
		return ""
	}
	return msg.Content
}

// Close releases the store.
func (s *Session) Close() error {
	s.machine.Terminate()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// =============================================================================
// EXCHANGES
// =============================================================================

// TimeHint returns the system hint describing the local time at t.
func TimeHint(t time.Time) string {
	return fmt.Sprintf("Current local time: %s (%s)",
		t.Format("Monday, January 2, 2006 at 3:04:05 PM MST"),
		t.Format(time.RFC3339))
}

// Payload returns the messages to send: the conversation plus the time hint
// when enabled. The hint is never added to the conversation itself.
func (s *Session) Payload() []model.Message {
	msgs := s.conv.Snapshot()
	if s.IncludeTime() {
		msgs = append(msgs, model.NewMessage(model.RoleSystem, TimeHint(s.now())))
	}
	return msgs
}

// Exchange sends userText with the active model and streams the reply to
// sinks. See Run.
func (s *Session) Exchange(ctx context.Context, userText string, sinks stream.Sinks) (string, error) {
	return s.Run(ctx, stream.NewExchange(s.Model()), userText, sinks)
}

// Run sends userText as exchange x. The user turn is appended first. The
// reply is committed to the conversation before sinks.OnDone runs, whether
// it completed, failed part way or was cancelled. The input machine leaves
// Busy on every path.
func (s *Session) Run(ctx context.Context, x *stream.Exchange, userText string, sinks stream.Sinks) (string, error) {
	defer s.machine.Finish()

	if strings.TrimSpace(x.Model) == "" {
		return "", &model.ValidationError{Field: "model", Message: "model name is empty"}
	}
	if s.transport == nil {
		return "", &model.ValidationError{Field: "transport", Message: "no transport configured"}
	}
	if err := s.conv.AppendUser(userText); err != nil {
		return "", err
	}

	wrapped := sinks
	wrapped.OnDone = func(full string) {
		if err := s.conv.AppendAssistant(full); err != nil {
			s.logger.Printf("session: could not commit reply: %v", err)
		}
		if sinks.OnDone != nil {
			sinks.OnDone(full)
		}
	}

	return x.Run(ctx, s.transport, s.Payload(), wrapped)
}

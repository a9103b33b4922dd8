// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that the request was accepted and the reply is
// about to stream.
type StreamStartMsg struct {
	ExchangeID string
	StartTime  time.Time
}

// StreamDeltaMsg delivers one reply fragment.
type StreamDeltaMsg struct {
	ExchangeID string
	Fragment   string
}

// StreamDoneMsg ends an exchange. Full is the committed reply text, which
// is partial when Err is set.
type StreamDoneMsg struct {
	ExchangeID string
	Full       string
	Err        error
	Stats      stream.Stats
}

// StreamTickMsg drives batched rendering while a reply streams.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// INPUT MESSAGES
// =============================================================================

// PasteSettledMsg fires after the paste guard delay following Enter.
type PasteSettledMsg struct {
	Ticket input.Ticket
}

// CommandResultMsg carries the outcome of a slash command.
type CommandResultMsg struct {
	Command input.Command
	Outcome session.Outcome
	Err     error
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// SavedMsg reports the result of a clip or save-as write.
type SavedMsg struct {
	Path string
	Err  error
}

// CopiedMsg reports the result of a clipboard copy.
type CopiedMsg struct {
	Chars int
	Err   error
}

// ClearNoticeMsg expires the transient status notice with the same Seq.
type ClearNoticeMsg struct {
	Seq int
}

// PresetsReloadedMsg is sent by the preset file watcher.
type PresetsReloadedMsg struct {
	Presets config.Presets
	Err     error
}

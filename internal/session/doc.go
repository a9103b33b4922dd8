// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one chat together: the conversation log, the active
// model and presets, the input mode machine and the transport.
//
// Both front ends (the line REPL and the TUI) feed user lines through
// Session.Feed and act on the resulting input.Step:
//
//   - input.Submit: call Exchange, which appends the user turn, streams the
//     reply and commits it (partial or empty included) before returning
//   - input.Run: call Apply and render the Outcome
//   - anything else: show the step's notice, if any
//
// The session is explicit; nothing here is package-level state.
//
// # Usage
//
//	s, err := session.New(session.Options{
//	    Transport:    client,
//	    Store:        store,
//	    Model:        cfg.Chat.Model,
//	    SystemPrompt: prompt,
//	    Presets:      presets,
//	    IncludeTime:  cfg.Chat.IncludeTime,
//	})
//	switch step := s.Feed(line).(type) {
//	case input.Submit:
//	    reply, err := s.Exchange(ctx, step.Text, sinks)
//	case input.Run:
//	    out, err := s.Apply(ctx, step.Command)
//	}
package session

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package input turns raw lines typed by the user into submissions and commands.
//
// Slash commands are parsed once, at the input boundary, into the closed
// Command variant; front ends dispatch on it with a type switch. The Machine
// tracks the input mode (Idle, Composing, Busy, Terminal) and is the busy
// gate that keeps at most one exchange in flight per conversation.
//
// PasteGuard is the Enter debounce used by the TUI to tell a pasted block of
// text apart from a deliberate send.
package input

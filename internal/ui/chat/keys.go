// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/neisii/chatgpt-cli/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat screen.
type KeyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	ClearInput key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Help       key.Binding
	KeyDebug   key.Binding
	ToggleTime key.Binding
	SaveClip   key.Binding
	SaveAs     key.Binding
	Copy       key.Binding
	Cancel     key.Binding
	Interrupt  key.Binding
	ForceQuit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("Ctrl+J", "insert newline"),
		),
		ClearInput: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("Ctrl+U", "clear input"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll history up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll history down"),
		),
		Help: key.NewBinding(
			// ctrl+_ is what most terminals send for Ctrl+/
			key.WithKeys("f1", "ctrl+_"),
			key.WithHelp("F1 / ? / Ctrl+/", "toggle help (? on empty input)"),
		),
		KeyDebug: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("Ctrl+K", "toggle key debug"),
		),
		ToggleTime: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("Ctrl+T", "toggle time hint"),
		),
		SaveClip: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("Ctrl+O", "save last reply to clip.txt"),
		),
		SaveAs: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("Ctrl+P", "save last reply as..."),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("Ctrl+Y", "copy last reply to clipboard"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel streaming reply"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "cancel reply, or quit when idle"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("Ctrl+Q", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in compact help.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Newline, k.Help, k.Interrupt}
}

// FullHelp returns all bindings grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Input
		{k.Submit, k.Newline, k.ClearInput},
		// History
		{k.PageUp, k.PageDown},
		// Replies
		{k.SaveClip, k.SaveAs, k.Copy, k.ToggleTime},
		// Control
		{k.Cancel, k.Interrupt, k.ForceQuit, k.Help, k.KeyDebug},
	}
}

// HelpEntries flattens FullHelp into overlay rows.
func (k KeyMap) HelpEntries() []components.HelpEntry {
	var entries []components.HelpEntry
	for _, group := range k.FullHelp() {
		for _, b := range group {
			h := b.Help()
			entries = append(entries, components.HelpEntry{Key: h.Key, Desc: h.Desc})
		}
	}
	return entries
}

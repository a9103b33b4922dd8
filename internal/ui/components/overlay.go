// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/neisii/chatgpt-cli/internal/ui/styles"
)

// =============================================================================
// HELP OVERLAY
// =============================================================================

// HelpEntry is one key binding row of the help overlay.
type HelpEntry struct {
	Key  string
	Desc string
}

// HelpOverlay renders the key reference and slash command list.
type HelpOverlay struct {
	Keys     []HelpEntry
	Commands []string
	Width    int
	Height   int
	theme    *styles.Theme
}

// NewHelpOverlay creates a help overlay.
func NewHelpOverlay(theme *styles.Theme, keys []HelpEntry, commands []string) *HelpOverlay {
	return &HelpOverlay{Keys: keys, Commands: commands, theme: theme}
}

// SetSize sets the screen size the overlay is centered in.
func (h *HelpOverlay) SetSize(width, height int) {
	h.Width = width
	h.Height = height
}

// View renders the overlay centered on a blank screen.
func (h *HelpOverlay) View() string {
	t := h.theme

	keyWidth := 0
	for _, e := range h.Keys {
		if w := runewidth.StringWidth(e.Key); w > keyWidth {
			keyWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(t.OverlayTitle.Render("Keys"))
	b.WriteString("\n")
	for _, e := range h.Keys {
		pad := strings.Repeat(" ", keyWidth-runewidth.StringWidth(e.Key))
		b.WriteString(t.OverlayKey.Render(e.Key) + pad + "  " + t.OverlayDesc.Render(e.Desc) + "\n")
	}
	if len(h.Commands) > 0 {
		b.WriteString("\n")
		b.WriteString(t.OverlayTitle.Render("Commands"))
		b.WriteString("\n")
		for _, line := range h.Commands {
			b.WriteString(t.OverlayDesc.Render(line) + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(t.OverlayDesc.Render("F1, ? or Esc closes this help."))

	box := t.OverlayBox
	if h.Width > 10 {
		box = box.MaxWidth(h.Width)
	}
	rendered := box.Render(b.String())
	if h.Width <= 0 || h.Height <= 0 {
		return rendered
	}
	return lipgloss.Place(h.Width, h.Height, lipgloss.Center, lipgloss.Center, rendered)
}

// =============================================================================
// KEY DEBUG
// =============================================================================

// KeyDebug shows how the terminal reported the last key press.
type KeyDebug struct {
	Visible bool
	Last    string
	Width   int
	theme   *styles.Theme
}

// NewKeyDebug creates a hidden key inspector.
func NewKeyDebug(theme *styles.Theme) *KeyDebug {
	return &KeyDebug{Width: 40, theme: theme}
}

// Toggle flips visibility.
func (k *KeyDebug) Toggle() {
	k.Visible = !k.Visible
}

// Record stores a description of msg when visible.
func (k *KeyDebug) Record(msg tea.KeyMsg) {
	if k.Visible {
		k.Last = DescribeKey(msg)
	}
}

// View renders the inspector box, or "" when hidden.
func (k *KeyDebug) View() string {
	if !k.Visible {
		return ""
	}
	inner := k.Width - 4
	if inner < 1 {
		inner = 1
	}
	line := runewidth.Truncate(k.Last, inner, "")
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Amber).
		Padding(0, 1).
		Width(k.Width - 2).
		Render(line)
}

// DescribeKey formats a key press as name, runes and modifiers.
func DescribeKey(msg tea.KeyMsg) string {
	name := msg.String()
	var mods []string
	if strings.HasPrefix(name, "ctrl+") || strings.Contains(name, "+ctrl+") {
		mods = append(mods, "Ctrl")
	}
	if msg.Alt {
		mods = append(mods, "Meta")
	}
	if strings.Contains(name, "shift+") {
		mods = append(mods, "Shift")
	}

	line := fmt.Sprintf("key=%s runes=%q type=%d", name, string(msg.Runes), int(msg.Type))
	if len(mods) > 0 {
		line += " (" + strings.Join(mods, "+") + ")"
	}
	return line
}

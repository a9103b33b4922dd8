// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"log"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// newRenderer builds a glamour renderer for a standard style. It returns
// nil when glamour cannot be set up; replies are then shown as plain text.
func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Printf("chat: markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

// renderMarkdown renders a finished reply, or returns "" to fall back to
// plain text.
func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil || text == "" {
		return ""
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		log.Printf("chat: markdown render failed: %v", err)
		return ""
	}
	return out
}

// =============================================================================
// CLIPBOARD
// =============================================================================

// copyToClipboard copies the given text to the system clipboard.
// Returns an error if the clipboard is not available or the operation fails.
func copyToClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// =============================================================================
// FORMATTING
// =============================================================================

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/neisii/chatgpt-cli/internal/input"
)

const welcomeText = `Ask anything. Enter sends, Ctrl+J adds a line, /multi starts a block.
F1 or ? lists keys and commands.`

// =============================================================================
// MAIN VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.help.View()
	}

	parts := []string{m.renderStatus()}
	if dbg := m.keyDebug.View(); dbg != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, dbg))
	}
	parts = append(parts, m.viewport.View(), m.renderInput())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// STATUS LINE
// =============================================================================

func (m Model) renderStatus() string {
	bar := m.statusBar
	bar.ModelName = m.sess.Model()
	bar.Busy = m.busy()
	bar.Spinner = m.spinner.View()
	bar.TimeHint = m.sess.IncludeTime()
	bar.ComposingLines = -1
	if mc := m.sess.Machine(); mc.State() == input.Composing {
		bar.ComposingLines = len(mc.Buffer())
	}
	bar.Notice = m.notice
	bar.NoticeError = m.noticeErr
	return bar.View()
}

// =============================================================================
// HISTORY
// =============================================================================

func (m Model) renderHistory() string {
	if len(m.entries) == 0 {
		return m.theme.Welcome.Width(m.contentWidth()).Render(welcomeText)
	}

	width := m.contentWidth()
	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderEntry(e entry, width int) string {
	t := m.theme
	// Bubble styles draw a left border and one column of padding.
	bodyWidth := max(width-2, 8)

	switch e.kind {
	case entryUser:
		return t.UserLabel.Render("YOU:") + "\n" + t.UserBubble.Width(bodyWidth).Render(e.text)

	case entryNotice:
		return t.SystemNote.Width(width).Render(e.text)

	case entryError:
		return t.ErrorText.Width(width).Render("[Error] " + e.text)
	}

	label := t.AssistantLabel.Render("AI:")
	var body string
	switch e.state {
	case replyStreaming:
		if e.text == "" {
			body = t.StatusBusy.Render(m.spinner.View() + " thinking…")
		} else {
			body = t.AssistantText.Width(bodyWidth).Render(e.text)
		}

	case replyCancelled:
		body = partial(t.AssistantText.Width(bodyWidth), e.text) + t.CancelledText.Render("[cancelled]")

	case replyFailed:
		body = partial(t.AssistantText.Width(bodyWidth), e.text) + t.ErrorText.Width(width).Render("[Error] "+e.errText)

	default:
		switch {
		case strings.TrimSpace(e.text) == "":
			body = t.NoResponse.Render("(no response)")
		case e.rendered != "":
			body = strings.Trim(e.rendered, "\n")
		default:
			body = t.AssistantText.Width(bodyWidth).Render(e.text)
		}
	}
	return label + "\n" + body
}

// partial renders the text received before a reply ended early, followed
// by a line break, or "" when nothing arrived.
func partial(style lipgloss.Style, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return style.Render(text) + "\n"
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	box := m.theme.InputBox
	if m.busy() {
		box = m.theme.InputBoxBusy
	}
	box = box.Width(max(m.width-2, 12))

	if m.saving {
		content := strings.Join([]string{
			m.theme.InputPrompt.Render("Save last reply"),
			m.saveInput.View(),
			m.theme.ComposingPreview.Render("Enter saves (blank uses the clip file), Esc cancels"),
		}, "\n")
		return box.Render(content)
	}
	return box.Render(m.input.View())
}

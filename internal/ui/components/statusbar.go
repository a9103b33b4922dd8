// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/neisii/chatgpt-cli/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar is the one-line status shown above the history.
//
//	Model: gpt-4o-mini | thinking… | Help: F1/? | Time:ON | Ctrl+C: Quit
type StatusBar struct {
	ModelName string
	Busy      bool
	// Spinner is the current spinner frame, shown while Busy.
	Spinner  string
	TimeHint bool
	// ComposingLines is the number of buffered lines in multi-line mode,
	// or -1 when not composing.
	ComposingLines int
	// Notice is a transient message such as "Saved: /path".
	Notice      string
	NoticeError bool
	Width       int
	theme       *styles.Theme
}

// NewStatusBar creates a StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		ComposingLines: -1,
		Width:          80,
		theme:          theme,
	}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// Segments returns the unstyled status segments in display order.
func (s *StatusBar) Segments() []string {
	parts := []string{"Model: " + s.ModelName}
	if s.Busy {
		parts = append(parts, strings.TrimSpace(s.Spinner+" thinking…"))
	}
	if s.ComposingLines >= 0 {
		parts = append(parts, "composing ("+strconv.Itoa(s.ComposingLines)+" lines, /end sends)")
	}
	if s.Notice != "" {
		parts = append(parts, s.Notice)
	}
	parts = append(parts, helpHint, "Time:"+onOff(s.TimeHint), quitHint)
	return parts
}

const (
	helpHint = "Help: F1/?"
	quitHint = "Ctrl+C: Quit"
)

// View renders the status bar. When the width is too small the quit and
// help hints are dropped first, then the line is truncated.
func (s *StatusBar) View() string {
	t := s.theme
	inner := s.Width - t.StatusBar.GetHorizontalPadding()

	segments := s.Segments()
	line := s.join(segments)
	for _, hint := range []string{quitHint, helpHint} {
		if lipgloss.Width(line) <= inner {
			break
		}
		segments = without(segments, hint)
		line = s.join(segments)
	}
	if inner > 0 && lipgloss.Width(line) > inner {
		line = runewidth.Truncate(strings.Join(segments, " | "), inner, "…")
	}
	return t.StatusBar.Width(s.Width).MaxHeight(1).Render(line)
}

func (s *StatusBar) join(segments []string) string {
	styled := make([]string, len(segments))
	for i, seg := range segments {
		styled[i] = s.styleSegment(seg)
	}
	return strings.Join(styled, s.theme.StatusSep.Render(" | "))
}

func (s *StatusBar) styleSegment(seg string) string {
	t := s.theme
	switch {
	case seg == s.Notice:
		if s.NoticeError {
			return t.StatusWarning.Render(seg)
		}
		return t.StatusNotice.Render(seg)
	case strings.HasPrefix(seg, "Model: "):
		return "Model: " + t.StatusModel.Render(s.ModelName)
	case strings.HasSuffix(seg, "thinking…"):
		return t.StatusBusy.Render(seg)
	case strings.HasPrefix(seg, "composing ("):
		return t.StatusComposed.Render(seg)
	case strings.HasPrefix(seg, "Time:"):
		if s.TimeHint {
			return "Time:" + t.StatusOn.Render("ON")
		}
		return "Time:" + t.StatusOff.Render("OFF")
	case seg == helpHint:
		return "Help: " + t.StatusKey.Render("F1/?")
	case seg == quitHint:
		return t.StatusKey.Render("Ctrl+C") + ": Quit"
	}
	return seg
}

func without(segments []string, drop string) []string {
	out := segments[:0:0]
	for _, seg := range segments {
		if seg != drop {
			out = append(out, seg)
		}
	}
	return out
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

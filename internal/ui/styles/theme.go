// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat screen.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HISTORY
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantText  lipgloss.Style
	SystemNote     lipgloss.Style
	ErrorText      lipgloss.Style
	CancelledText  lipgloss.Style
	NoResponse     lipgloss.Style
	Welcome        lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox         lipgloss.Style
	InputBoxBusy     lipgloss.Style
	InputPrompt      lipgloss.Style
	ComposingPreview lipgloss.Style

	// ==========================================================================
	// STATUS LINE
	// ==========================================================================

	StatusBar      lipgloss.Style
	StatusModel    lipgloss.Style
	StatusBusy     lipgloss.Style
	StatusKey      lipgloss.Style
	StatusOn       lipgloss.Style
	StatusOff      lipgloss.Style
	StatusSep      lipgloss.Style
	StatusNotice   lipgloss.Style
	StatusWarning  lipgloss.Style
	StatusComposed lipgloss.Style

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	OverlayBox   lipgloss.Style
	OverlayTitle lipgloss.Style
	OverlayKey   lipgloss.Style
	OverlayDesc  lipgloss.Style
}

// NewTheme creates the theme for a configured name: "dark", "light" or
// "auto". Auto asks the terminal for its background.
func NewTheme(name string) *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}
	switch strings.ToLower(name) {
	case "dark":
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.IsDark = termenv.HasDarkBackground()
	}
	t.initStyles()
	return t
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// History
	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)

	t.AssistantText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.SystemNote = lipgloss.NewStyle().Foreground(SystemBubbleFg).Italic(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.CancelledText = lipgloss.NewStyle().Foreground(Amber)
	t.NoResponse = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Welcome = lipgloss.NewStyle().Foreground(TextSecondary)

	// Input
	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)
	t.InputBoxBusy = t.InputBox.BorderForeground(OverlayDim)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ComposingPreview = lipgloss.NewStyle().Foreground(TextSecondary)

	// Status line
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusModel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.StatusBusy = lipgloss.NewStyle().Foreground(Amber)
	t.StatusKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusOn = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusOff = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusSep = lipgloss.NewStyle().Foreground(OverlayDim)
	t.StatusNotice = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusWarning = lipgloss.NewStyle().Foreground(Rose)
	t.StatusComposed = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	// Overlays
	t.OverlayBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.OverlayTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.OverlayKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.OverlayDesc = lipgloss.NewStyle().Foreground(TextSecondary)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

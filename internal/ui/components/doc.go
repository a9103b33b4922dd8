// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the small rendering pieces of the chat screen.

# Components

StatusBar (statusbar.go) - One-line status: model, busy spinner, notices,
help hint, time-hint state.

HelpOverlay and KeyDebug (overlay.go) - The F1 key reference and the Ctrl+K
key inspector.

All components take a *styles.Theme:

	theme := styles.NewTheme("auto")
	bar := components.NewStatusBar(theme)
	bar.Width = 80
	bar.ModelName = "gpt-4o-mini"
	view := bar.View()

Components hold no Bubble Tea state of their own; the chat model sets their
fields and calls View.
*/
package components

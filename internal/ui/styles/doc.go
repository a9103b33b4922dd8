// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lip gloss styles of the gptcli
terminal interfaces.

# Color System (colors.go)

All colors are lipgloss.AdaptiveColor values, so the same palette works on
dark and light terminals:

  - Purple - assistant label and overlays
  - Cyan - user label, input box and key names
  - Emerald - confirmations and enabled toggles
  - Amber - busy indicator and cancelled replies
  - Rose - errors

The Render* helpers prefix a message with a plain-text status marker such
as [OK] or [X] so it stays readable without color.

# Theme (theme.go)

NewTheme takes the configured name ("dark", "light" or "auto") and builds
every style the chat screen uses. Auto asks the terminal for its
background. GlamourStyle names the matching markdown style.

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	label := theme.AssistantLabel.Render("AI:")
*/
package styles

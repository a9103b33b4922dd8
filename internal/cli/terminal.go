// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for line-mode output.
//
// Colors and markdown rendering are only used when stdout is a terminal,
// so piping "gptcli ask" into a file yields the raw reply text.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// StdinHasData reports whether stdin is a pipe or file rather than a
// terminal.
func StdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

// MaxStdinBytes bounds how much piped input "ask" accepts.
const MaxStdinBytes = 1 << 20

// readAllLimited reads r up to MaxStdinBytes.
func readAllLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxStdinBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxStdinBytes {
		return "", fmt.Errorf("stdin exceeds %d bytes", MaxStdinBytes)
	}
	return strings.TrimSpace(string(data)), nil
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// termSize returns the stdout terminal size.
func termSize() (width, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// wrapWidth picks the glamour word-wrap width: the configured width capped
// by the terminal.
func wrapWidth(configured int) int {
	w := GetTerminalWidth() - 2
	if configured > 0 && configured < w {
		return configured
	}
	return w
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled returns true if colored output should be used.
// NO_COLOR (https://no-color.org/) wins over FORCE_COLOR, which wins over
// TTY detection.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// ForceColorsEnabled overrides color detection. Tests only.
func ForceColorsEnabled(enabled bool) {
	colorsEnabledOnce = sync.Once{}
	colorsEnabledOnce.Do(func() {
		colorsEnabled = enabled
	})
}

// GetColorProfile returns the termenv profile to render with: Ascii when
// colors are off, otherwise whatever the terminal supports.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared formatting and prompt helpers for CLI commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// formatDuration formats a session length for display.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// onOff renders a boolean the way the status lines do.
func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// =============================================================================
// PROMPTS
// =============================================================================

var (
	inputReader = bufio.NewReader(os.Stdin)
	inputMutex  sync.Mutex
)

// promptLine reads one line from stdin after printing prompt.
func promptLine(prompt string) string {
	inputMutex.Lock()
	defer inputMutex.Unlock()

	fmt.Print(prompt)
	line, err := inputReader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptInputWithDefault reads a value, returning defaultVal on empty input.
func promptInputWithDefault(prompt, defaultVal string) string {
	if defaultVal != "" {
		prompt = fmt.Sprintf("%s [%s]: ", prompt, defaultVal)
	} else {
		prompt += ": "
	}
	if input := promptLine(prompt); input != "" {
		return input
	}
	return defaultVal
}

// promptSecure reads a secret without echo.
func promptSecure(prompt string) string {
	inputMutex.Lock()
	defer inputMutex.Unlock()

	fmt.Print(prompt + ": ")
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(keyBytes))
}

// promptYesNo asks a yes/no question.
func promptYesNo(prompt string, defaultYes bool) bool {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	input := strings.ToLower(promptLine(fmt.Sprintf("%s %s: ", prompt, suffix)))
	if input == "" {
		return defaultYes
	}
	return input == "y" || input == "yes"
}

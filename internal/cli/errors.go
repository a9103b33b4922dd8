// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.
//
// Command handlers return errors; the Handle* wrappers display them and
// pick the exit code.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/neisii/chatgpt-cli/internal/cloud"
	"github.com/neisii/chatgpt-cli/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError covers startup failures (missing key, bad config) and
	// any other error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitInterrupted is used when "ask" is cancelled with Ctrl+C
	ExitInterrupted = 130
)

// ErrMissingAPIKey is returned at startup when no key is configured.
var ErrMissingAPIKey = errors.New("no API key configured")

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "config")
	Action  string // Action being performed (e.g., "set")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents bad user input on the command line.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewCommandError creates a CommandError.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "is required",
		Example: usage,
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err to stderr with a hint when one applies.
func DisplayError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, DimStyle.Render(hint))
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "Set OPENAI_API_KEY (or OPENAI_KEY / OPENAI_APIKEY), or add api.key to " + configPathForHint() + "."
	case errors.Is(err, cloud.ErrAuthFailed):
		return "The server rejected the API key."
	case errors.Is(err, cloud.ErrModelNotFound):
		return "Check the model name; `gptcli chat` then /models lists what your key can use."
	case errors.Is(err, config.ErrUnknownPreset):
		return "Run `gptcli presets` to list presets."
	}
	var ve config.ValidateErrors
	if errors.As(err, &ve) {
		return "Fix the values above in " + configPathForHint() + " or the environment."
	}
	return ""
}

func configPathForHint() string {
	if p, err := config.ConfigPathTOML(); err == nil {
		return p
	}
	return "~/.gptcli/config.toml"
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	if errors.Is(err, errInterrupted) {
		return ExitInterrupted
	}
	return ExitGeneralError
}

// errInterrupted marks a one-shot request cancelled by the user.
var errInterrupted = errors.New("interrupted")

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and command dispatch for gptcli.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdPresets
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdPresets:
		return "presets"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Model      string
	System     string
	Preset     string
	ConfigPath string
	NoTime     bool
	NoPersist  bool
	Quiet      bool

	// Query is the question for "ask".
	Query string

	// Subcommand is the first argument after "config" or "presets".
	Subcommand string

	// Unknown is the unrecognized command word for CmdUnknown.
	Unknown string

	// Raw is everything after the command word.
	Raw []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `gptcli - streaming chat for OpenAI-compatible APIs

Usage:
  gptcli                       Start the full-screen chat (default)
  gptcli tui                   Same as above
  gptcli chat                  Line-mode chat with history
  gptcli ask "question"        Ask one question; reads stdin when piped
  gptcli presets               List system prompt presets
  gptcli config [show|path|init|get|set]
                               Show or edit configuration
  gptcli version               Show version
  gptcli help                  Show this help

Global flags:
  -m, --model NAME             Model to use (default gpt-4o-mini)
  -s, --system TEXT            System prompt for this run (resets saved chat)
      --preset NAME            Use a preset's system prompt (resets saved chat)
      --no-time                Do not send the local-time hint
      --no-persist             Do not load or save the conversation
  -q, --quiet                  Less decoration
      --config PATH            Read configuration from PATH

Environment:
  OPENAI_API_KEY               API key (OPENAI_KEY and OPENAI_APIKEY also work)
  OPENAI_BASE_URL              API root for OpenAI-compatible servers
  MODEL, GPTCLI_MODEL          Default model
  GPTCLI_HOME                  Config directory (default ~/.gptcli)
  GPTCLI_DEBUG=1               Log to stderr in line mode
  NO_COLOR                     Disable colors

In chat, type /help for commands.

Version: %s
`

// PrintUsage writes the usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("gptcli version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed
	case "chat", "repl":
		return CmdChat, parsed
	case "ask", "a":
		parsed.Query = strings.TrimSpace(strings.Join(remaining, " "))
		return CmdAsk, parsed
	case "presets", "preset":
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdPresets, parsed
	case "config", "cfg":
		if len(remaining) > 0 {
			parsed.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConfig, parsed
	case "version", "--version", "-V":
		return CmdVersion, parsed
	case "help", "--help", "-h":
		return CmdHelp, parsed
	default:
		parsed.Unknown = cmd
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags pulls the global flags out of args wherever they appear
// and returns the rest in order.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			remaining = append(remaining, args[i+1:]...)
			break
		}

		// value flags: -m NAME, --model NAME, --model=NAME
		if target := valueFlag(&parsed, arg); target != nil {
			if i+1 < len(args) {
				i++
				*target = args[i]
			}
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(name, "--") {
			if target := valueFlag(&parsed, name); target != nil {
				*target = value
				continue
			}
		}

		switch arg {
		case "--no-time":
			parsed.NoTime = true
		case "--no-persist":
			parsed.NoPersist = true
		case "-q", "--quiet":
			parsed.Quiet = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}

func valueFlag(a *Args, name string) *string {
	switch name {
	case "-m", "--model":
		return &a.Model
	case "-s", "--system":
		return &a.System
	case "--preset":
		return &a.Preset
	case "--config":
		return &a.ConfigPath
	default:
		return nil
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	exitOnError(HandleAskCommand(args))
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	exitOnError(HandleChatCommand(args))
}

// HandlePresets handles the "presets" command.
func HandlePresets(args Args) {
	exitOnError(HandlePresetsCommand(args))
}

// HandleConfig handles the "config" command.
func HandleConfig(args Args) {
	exitOnError(HandleConfigCommand(args))
}

// HandleVersion handles the "version" command.
func HandleVersion() {
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage(os.Stdout)
}

// HandleUnknown reports an unrecognized command and exits with a usage error.
func HandleUnknown(args Args) {
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args.Unknown)
	PrintUsage(os.Stderr)
	os.Exit(ExitUsageError)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	DisplayError(err)
	os.Exit(GetExitCode(err))
}

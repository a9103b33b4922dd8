// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package input

import (
	"strings"
	"unicode"
)

// =============================================================================
// COMMAND VARIANT
// =============================================================================

// Command is a parsed slash command. The set of implementations is closed;
// only this package can add one.
type Command interface {
	isCommand()
}

type (
	// Help shows the command reference.
	Help struct{}
	// Clear resets the conversation to its system prompt.
	Clear struct{}
	// Model switches the active model. An empty Name shows the current one.
	Model struct{ Name string }
	// System replaces the system prompt and resets. Empty Text shows the current one.
	System struct{ Text string }
	// Preset applies a named preset. An empty Name lists presets.
	Preset struct{ Name string }
	// Models lists models available to the API key.
	Models struct{}
	// Save writes the transcript. An empty Path uses a timestamped default.
	Save struct{ Path string }
	// Time toggles the local-time hint sent with each request.
	Time struct{}
	// Multiline starts multi-line composition.
	Multiline struct{}
	// End sends the composed lines.
	End struct{}
	// Cancel discards the composed lines.
	Cancel struct{}
	// Exit ends the session.
	Exit struct{}
	// Unknown is any other slash word.
	Unknown struct{ Name string }
)

func (Help) isCommand()      {}
func (Clear) isCommand()     {}
func (Model) isCommand()     {}
func (System) isCommand()    {}
func (Preset) isCommand()    {}
func (Models) isCommand()    {}
func (Save) isCommand()      {}
func (Time) isCommand()      {}
func (Multiline) isCommand() {}
func (End) isCommand()       {}
func (Cancel) isCommand()    {}
func (Exit) isCommand()      {}
func (Unknown) isCommand()   {}

// =============================================================================
// PARSING
// =============================================================================

// Parse resolves a slash command. It returns false for lines that are not
// commands. Arguments keep their inner spacing; /save and /model accept
// quoted values.
func Parse(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return nil, false
	}

	name, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		name, rest = line[:i], strings.TrimSpace(line[i:])
	}

	switch strings.ToLower(name) {
	case "/help", "/h", "/?":
		return Help{}, true
	case "/clear", "/c", "/reset", "/new":
		return Clear{}, true
	case "/model", "/m":
		return Model{Name: firstArg(rest)}, true
	case "/models":
		return Models{}, true
	case "/sys", "/system":
		return System{Text: rest}, true
	case "/preset", "/p":
		return Preset{Name: firstArg(rest)}, true
	case "/presets":
		return Preset{}, true
	case "/save", "/s":
		return Save{Path: firstArg(rest)}, true
	case "/time", "/t":
		return Time{}, true
	case "/multi", "/ml", "/multiline":
		return Multiline{}, true
	case "/end", "/send":
		return End{}, true
	case "/cancel":
		return Cancel{}, true
	case "/exit", "/quit", "/q":
		return Exit{}, true
	default:
		return Unknown{Name: name}, true
	}
}

func firstArg(rest string) string {
	args := splitCommandLine(rest)
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// splitCommandLine splits on whitespace, honouring single and double quotes
// and backslash escapes of quotes inside them.
func splitCommandLine(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble, started bool

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			started = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			started = true
		case r == '\\' && i+1 < len(runes) && (inSingle || inDouble):
			next := runes[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(r)
			}
		case unicode.IsSpace(r) && !inSingle && !inDouble:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// MutatesConversation reports whether cmd changes the conversation. Such
// commands are refused while a reply is streaming.
func MutatesConversation(cmd Command) bool {
	switch c := cmd.(type) {
	case Clear:
		return true
	case System:
		return c.Text != ""
	case Preset:
		return c.Name != ""
	case Help, Model, Models, Save, Time, Multiline, End, Cancel, Exit, Unknown:
		return false
	default:
		return false
	}
}

// HelpEntry is one line of the command reference.
type HelpEntry struct {
	Usage       string
	Description string
}

// HelpEntries lists the commands in display order.
func HelpEntries() []HelpEntry {
	return []HelpEntry{
		{"/help", "Show this help"},
		{"/clear", "Reset the conversation to the system prompt"},
		{"/model [name]", "Show or change the model"},
		{"/models", "List models available to your key"},
		{"/sys [text]", "Show or replace the system prompt (resets)"},
		{"/preset [name]", "List presets or apply one (resets)"},
		{"/save [file]", "Save the transcript (default chat-<ms>.md)"},
		{"/time", "Toggle the local-time hint"},
		{"/multi", "Start multi-line input; /end sends, /cancel discards"},
		{"/exit", "Quit"},
	}
}

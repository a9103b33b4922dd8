// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/neisii/chatgpt-cli/internal/export"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// ErrNoModelLister is returned by /models when the session has no lister.
var ErrNoModelLister = errors.New("model listing is not available")

// Outcome describes what a command did, for the front end to render.
type Outcome struct {
	// Notice is a one-line status message.
	Notice string
	// Lines is a multi-line listing (models, presets, help).
	Lines []string
	// ShowHelp asks the front end to display its help view.
	ShowHelp bool
	// Reset reports that the conversation was cleared.
	Reset bool
	// Exit asks the front end to quit.
	Exit bool
	// Saved is the path of a written transcript.
	Saved string
}

// Apply executes a command. Errors are reserved for I/O failures; user
// mistakes such as an unknown preset come back as a Notice.
func (s *Session) Apply(ctx context.Context, cmd input.Command) (Outcome, error) {
	switch c := cmd.(type) {
	case input.Help:
		return Outcome{ShowHelp: true, Lines: HelpLines()}, nil

	case input.Clear:
		s.conv.Reset()
		return Outcome{Notice: "Context cleared.", Reset: true}, nil

	case input.Model:
		if c.Name == "" {
			return Outcome{Notice: "Current model: " + s.Model()}, nil
		}
		if err := s.SetModel(c.Name); err != nil {
			return Outcome{}, err
		}
		return Outcome{Notice: "Model changed: " + s.Model()}, nil

	case input.Models:
		return s.listModels(ctx)

	case input.System:
		if c.Text == "" {
			return Outcome{Notice: fmt.Sprintf("Current system prompt: %q", util.Truncate(s.SystemPrompt(), 200))}, nil
		}
		s.conv.Reset(c.Text)
		return Outcome{Notice: "System prompt updated. Context cleared.", Reset: true}, nil

	case input.Preset:
		presets := s.Presets()
		if c.Name == "" {
			return Outcome{
				Notice: fmt.Sprintf("%d presets (use /preset <name>):", len(presets)),
				Lines:  presets.Lines(0),
			}, nil
		}
		prompt, ok := presets.Prompt(c.Name)
		if !ok {
			return Outcome{Notice: fmt.Sprintf("Unknown preset %q. Type /preset to list them.", c.Name)}, nil
		}
		s.conv.Reset(prompt)
		return Outcome{Notice: fmt.Sprintf("Preset %q applied. Context cleared.", c.Name), Reset: true}, nil

	case input.Save:
		path, err := export.SaveTranscript(c.Path, s.Model(), s.conv.Snapshot(), s.now())
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Notice: "Saved to " + path, Saved: path}, nil

	case input.Time:
		if s.ToggleTime() {
			return Outcome{Notice: "Time hint: ON"}, nil
		}
		return Outcome{Notice: "Time hint: OFF"}, nil

	case input.Exit:
		s.machine.Terminate()
		return Outcome{Exit: true}, nil

	case input.Multiline, input.End, input.Cancel:
		return Outcome{}, fmt.Errorf("%T must be fed through the input machine", cmd)

	case input.Unknown:
		return Outcome{Notice: fmt.Sprintf("Unknown command %s. Type /help for the list.", c.Name)}, nil

	default:
		return Outcome{}, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (s *Session) listModels(ctx context.Context) (Outcome, error) {
	if s.lister == nil {
		return Outcome{}, ErrNoModelLister
	}
	ids, err := s.lister.ListModelIDs(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list models: %w", err)
	}

	current := s.Model()
	lines := make([]string, len(ids))
	for i, id := range ids {
		marker := "  "
		if id == current {
			marker = "* "
		}
		lines[i] = marker + id
	}
	return Outcome{Notice: fmt.Sprintf("%d models available:", len(ids)), Lines: lines}, nil
}

// HelpLines formats the command reference.
func HelpLines() []string {
	entries := input.HelpEntries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = util.PadRight(e.Usage, 16) + e.Description
	}
	return lines
}

// StepNotice returns the message to show for a step that needs no further
// action, or "" when there is nothing to say.
func StepNotice(step input.Step) string {
	switch st := step.(type) {
	case input.Composed:
		return "Multi-line mode: /end to send, /cancel to discard."
	case input.Discarded:
		return st.Notice
	case input.Ignored:
		return st.Reason
	default:
		return ""
	}
}

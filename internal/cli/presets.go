// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// presets.go - The "presets" command.
//
// Examples:
//   gptcli presets                       List presets
//   gptcli presets show coder            Print one preset's prompt
//   gptcli presets add pirate "Talk like a pirate."
//   gptcli presets rm pirate             Remove a preset (built-ins are restored)

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// HandlePresetsCommand dispatches the presets subcommands.
func HandlePresetsCommand(args Args) error {
	path, err := config.PresetsPath()
	if err != nil {
		return err
	}
	p := NewArgParser(args.Raw)

	switch args.Subcommand {
	case "", "list", "ls":
		return listPresets(os.Stdout, path)
	case "show", "get":
		name := p.Positional(1)
		if name == "" {
			return ErrMissingArgument("name", "gptcli presets show coder")
		}
		return showPreset(os.Stdout, path, name)
	case "add", "set":
		name, prompt := p.Positional(1), strings.TrimSpace(strings.Join(p.PositionalFrom(2), " "))
		if name == "" || prompt == "" {
			return ErrMissingArgument("name and prompt", `gptcli presets add pirate "Talk like a pirate."`)
		}
		return addPreset(os.Stdout, path, name, prompt)
	case "rm", "remove", "delete":
		name := p.Positional(1)
		if name == "" {
			return ErrMissingArgument("name", "gptcli presets rm pirate")
		}
		return removePreset(os.Stdout, path, name)
	default:
		return &ValidationError{
			Field:  "subcommand",
			Value:  args.Subcommand,
			Reason: "must be one of list, show, add, rm",
		}
	}
}

func listPresets(w io.Writer, path string) error {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return err
	}
	width := GetTerminalWidth() - 15
	for _, name := range presets.Names() {
		summary := util.TruncateWidth(util.FirstLine(presets[name]), width)
		fmt.Fprintf(w, "%s %s\n", CommandStyle.Render(util.PadRight(name, 12)), DimStyle.Render(summary))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, DimStyle.Render("Custom presets live in "+path))
	return nil
}

func showPreset(w io.Writer, path, name string) error {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return err
	}
	prompt, ok := presets.Prompt(name)
	if !ok {
		return fmt.Errorf("%w: %s", config.ErrUnknownPreset, name)
	}
	fmt.Fprintln(w, prompt)
	return nil
}

func addPreset(w io.Writer, path, name, prompt string) error {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	presets[name] = prompt
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.SavePresets(path, presets); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s preset %q\n", SuccessStyle.Render("Saved"), name)
	return nil
}

func removePreset(w io.Writer, path, name string) error {
	presets, err := config.LoadPresets(path)
	if err != nil {
		return err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := presets[name]; !ok {
		return fmt.Errorf("%w: %s", config.ErrUnknownPreset, name)
	}

	builtin, isBuiltin := config.BuiltinPresets()[name]
	if isBuiltin {
		presets[name] = builtin
	} else {
		delete(presets, name)
	}
	if err := config.SavePresets(path, presets); err != nil {
		return err
	}

	if isBuiltin {
		fmt.Fprintf(w, "%s built-in preset %q\n", SuccessStyle.Render("Restored"), name)
	} else {
		fmt.Fprintf(w, "%s preset %q\n", SuccessStyle.Render("Removed"), name)
	}
	return nil
}

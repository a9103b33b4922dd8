// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.
//
// Command: config
// Short:   Show or edit configuration
//
// Examples:
//   gptcli config                       Show effective configuration
//   gptcli config path                  Show file locations
//   gptcli config init                  Write a config file (asks questions on a TTY)
//   gptcli config get chat.model        Print one value
//   gptcli config set chat.model gpt-4o Change one value in the file
//
// "set" edits the file only; environment overrides are not written back.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// HandleConfigCommand dispatches the config subcommands.
func HandleConfigCommand(args Args) error {
	p := NewArgParser(args.Raw, "force", "f")

	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(os.Stdout, args)
	case "path", "paths":
		return handleConfigPath(os.Stdout, args)
	case "init":
		return handleConfigInit(args, p.BoolFlag("force") || p.BoolFlag("f"))
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "gptcli config get chat.model")
		}
		return handleConfigGet(os.Stdout, args, key)
	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "gptcli config set chat.model gpt-4o")
		}
		return handleConfigSet(os.Stdout, args, key, value)
	default:
		return &ValidationError{
			Field:   "subcommand",
			Value:   args.Subcommand,
			Reason:  "must be one of show, path, init, get, set",
			Example: "gptcli config show",
		}
	}
}

// configFilePath is the file "set" and "init" write to.
func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return util.ExpandHome(args.ConfigPath), nil
	}
	return config.ConfigPathTOML()
}

// =============================================================================
// SHOW / GET
// =============================================================================

func handleConfigShow(w io.Writer, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, TitleStyle.Render("gptcli configuration"))
	section := ""
	for _, key := range config.Keys() {
		if sec, _, ok := strings.Cut(key, "."); ok && sec != section {
			section = sec
			fmt.Fprintf(w, "\n[%s]\n", section)
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", RenderLabel(key), ValueStyle.Render(displayValue(key, value)))
	}
	return nil
}

func handleConfigGet(w io.Writer, args Args, key string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "gptcli config get chat.model"}
	}
	fmt.Fprintln(w, displayValue(key, value))
	return nil
}

// displayValue formats a config value, masking the API key.
func displayValue(key string, value interface{}) string {
	if key == "api.key" {
		return maskAPIKey(fmt.Sprint(value))
	}
	if s, ok := value.(string); ok && s == "" {
		return `""`
	}
	return fmt.Sprint(value)
}

// maskAPIKey shows only the last four characters of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// =============================================================================
// PATH
// =============================================================================

func handleConfigPath(w io.Writer, args Args) error {
	cfgPath, err := configFilePath(args)
	if err != nil {
		return err
	}
	presets, _ := config.PresetsPath()
	history, _ := config.HistoryPath()
	logPath, _ := config.LogPath()
	clip, _ := config.ClipPath()

	cfg, err := LoadConfig(args)
	sessionPath := ""
	if err == nil {
		sessionPath, _ = cfg.SessionPath()
	}

	rows := []struct{ label, path string }{
		{"config", cfgPath},
		{"presets", presets},
		{"session", sessionPath},
		{"history", history},
		{"clip", clip},
		{"log", logPath},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\n", RenderLabel(r.label), r.path)
	}
	return nil
}

// =============================================================================
// SET
// =============================================================================

func handleConfigSet(w io.Writer, args Args, key, value string) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}

	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return NewCommandError("config", "set", "resulting config is invalid", err)
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.SaveFile(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Set"), key, displayValue(key, value))
	return nil
}

// readConfigFile loads path without environment overrides, or returns the
// defaults when it does not exist yet.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return cfg, config.LoadJSON(cfg, path)
	}
	return cfg, config.LoadTOML(cfg, path)
}

// =============================================================================
// INIT
// =============================================================================

func handleConfigInit(args Args, force bool) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewCommandError("config", "init", path+" already exists (use --force to overwrite)", nil)
	}

	cfg := config.Default()
	if IsTTY() {
		fmt.Println(TitleStyle.Render("gptcli setup"))
		fmt.Println(DimStyle.Render("Press Enter to accept the value in brackets."))
		fmt.Println()

		if promptYesNo("Store an API key in the config file? (OPENAI_API_KEY is preferred)", false) {
			cfg.API.Key = promptSecure("API key")
		}
		cfg.API.BaseURL = promptInputWithDefault("API base URL", cfg.API.BaseURL)
		cfg.Chat.Model = promptInputWithDefault("Default model", cfg.Chat.Model)
		cfg.Chat.IncludeTime = promptYesNo("Send the local time with each request?", cfg.Chat.IncludeTime)
		cfg.Session.Persist = promptYesNo("Remember the conversation between runs?", cfg.Session.Persist)
		if cfg.Session.Persist {
			backend := strings.ToLower(promptInputWithDefault("Session backend (json or sqlite)", cfg.Session.Backend))
			if backend == config.BackendSQLite {
				cfg.Session.Backend = config.BackendSQLite
			}
		}
		fmt.Println()
	}

	if err := cfg.Validate(); err != nil {
		return NewCommandError("config", "init", "invalid answers", err)
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.SaveFile(cfg, path); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads gptcli settings and system-prompt presets.
//
// Settings are read from TOML or JSON, with defaults for anything the file
// leaves out and environment variables applied on top.
//
// # Configuration Precedence
//
// From highest to lowest:
//   - Command-line flags (applied by the cli package)
//   - Environment variables (OPENAI_API_KEY, MODEL, GPTCLI_*)
//   - ~/.gptcli/config.toml
//   - ~/.gptcli/config.json
//   - Built-in defaults
//
// GPTCLI_HOME relocates the whole ~/.gptcli directory.
//
// # Presets
//
// Named system prompts live in ~/.gptcli/presets.yaml and are merged over
// the built-in set. WatchPresets reports edits to that file while the TUI
// is running.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
//	}
//	presets, _ := config.LoadPresets("")
//	prompt, ok := presets.Prompt("coder")
package config

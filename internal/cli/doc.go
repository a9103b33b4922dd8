// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements gptcli's command line: argument parsing, the
// line-mode chat REPL, one-shot questions and the presets and config
// commands.
//
// # Key Types
//
//   - Command: the command selected by the first argument
//   - Args: global flags plus command-specific values
//   - Runtime: config, API client and session wired together by OpenRuntime
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	}
//
// # Commands
//
//   - tui (default): full-screen chat, started from package main
//   - chat: REPL with history in ~/.gptcli/chat_history
//   - ask: one question, reply on stdout
//   - presets: list, show, add, rm
//   - config: show, path, init, get, set
//   - version, help
//
// Handlers return errors; the Handle* wrappers print them and exit with
// GetExitCode.
package cli

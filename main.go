// gptcli - streaming chat for OpenAI-compatible APIs.
//
// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/neisii/chatgpt-cli/internal/cli"
	"github.com/neisii/chatgpt-cli/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdPresets:
		cli.HandlePresets(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleUnknown(args)
	}
}

// runTUI starts the full-screen chat. Without a terminal on both ends it
// falls back to the line REPL.
func runTUI(args cli.Args) {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		fmt.Fprintln(os.Stderr, "No terminal detected; starting the line chat instead.")
		cli.HandleChat(args)
		return
	}
	if err := chat.Run(args); err != nil {
		cli.DisplayError(err)
		os.Exit(cli.GetExitCode(err))
	}
}

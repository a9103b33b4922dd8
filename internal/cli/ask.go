// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot questions.
//
// Command: ask
// Short:   Ask one question and stream the answer
// Aliases: a
//
// Examples:
//   gptcli ask "What does SIGPIPE mean?"
//   git diff | gptcli ask "Write a commit message for this diff"
//   gptcli ask --preset translator < notes.txt
//
// Piped stdin is appended to the question (or is the question when none is
// given). Nothing is read from or written to the saved conversation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/neisii/chatgpt-cli/internal/stream"
)

// HandleAskCommand runs a single exchange and streams the reply to stdout.
func HandleAskCommand(args Args) error {
	question, err := askQuestion(args.Query)
	if err != nil {
		return err
	}

	logFile := RedirectLog()
	defer logFile.Close()

	rt, err := OpenRuntime(args, RuntimeOptions{Ephemeral: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repl := newChatREPL(rt.Session, os.Stdout, true)
	repl.label = ""
	if rt.Config.UI.Markdown && IsStdoutTTY() {
		repl.termWidth = GetTerminalWidth()
		_, repl.termHeight, _ = termSize()
		if r, err := newMarkdownRenderer(rt.Config.UI.Theme, wrapWidth(rt.Config.UI.WordWrap)); err == nil {
			repl.renderer = r
		}
	}

	if _, err := repl.stream(ctx, question); err != nil {
		var te *stream.TransportError
		if errors.As(err, &te) && te.Canceled() {
			return errInterrupted
		}
		return err
	}
	return nil
}

// askQuestion combines the command-line question with piped stdin.
func askQuestion(query string) (string, error) {
	if StdinHasData() {
		piped, err := readAllLimited(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		query = joinQuestion(query, piped)
	}
	if query == "" {
		return "", ErrMissingArgument("question", `gptcli ask "What is a goroutine?"`)
	}
	return query, nil
}

// joinQuestion puts piped input after the question, separated by a blank
// line.
func joinQuestion(question, piped string) string {
	switch {
	case piped == "":
		return question
	case question == "":
		return piped
	default:
		return question + "\n\n" + piped
	}
}

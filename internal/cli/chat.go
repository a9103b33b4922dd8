// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat (REPL) for gptcli.
//
// Command: chat
// Short:   Interactive chat with line editing and history
//
// Examples:
//   gptcli chat                       Chat with the configured model
//   gptcli chat -m gpt-4o             Use a specific model
//   gptcli chat --preset coder        Start fresh with the "coder" preset
//   gptcli chat --no-persist          Do not restore or save the conversation
//
// Replies stream to stdout as they arrive. On a terminal with ui.markdown
// enabled, a finished reply that still fits on screen is redrawn as
// rendered markdown.
//
// Keys:
//   Ctrl+C while a reply streams   Cancel it (the partial reply is kept)
//   Ctrl+C at the prompt, Ctrl+D   Quit
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/stream"
	"github.com/neisii/chatgpt-cli/internal/util"
)

const (
	promptIdle      = "you> "
	promptComposing = "... "

	// commandTimeout bounds slash commands that reach the network (/models).
	commandTimeout = 30 * time.Second
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with the history file loaded.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.HistoryPath()
	if err != nil {
		historyFile = ""
	}

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line. Non-blank lines are added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	text, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		c.line.AppendHistory(text)
	}
	return text, nil
}

// SaveHistory writes the history file with 0600 permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// MARKDOWN
// =============================================================================

// newMarkdownRenderer builds a glamour renderer for theme ("dark", "light"
// or "auto") wrapping at width.
func newMarkdownRenderer(theme string, width int) (*glamour.TermRenderer, error) {
	style := glamour.WithAutoStyle()
	switch strings.ToLower(theme) {
	case "dark":
		style = glamour.WithStandardStyle("dark")
	case "light":
		style = glamour.WithStandardStyle("light")
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}

// streamedRows counts the terminal rows text occupied when printed raw at
// the given width.
func streamedRows(text string, width int) int {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		w := util.Width(line)
		if w == 0 {
			rows++
			continue
		}
		rows += (w + width - 1) / width
	}
	return rows
}

// =============================================================================
// REPL
// =============================================================================

// chatREPL drives one session from line input. It is separate from the
// liner loop so it can be exercised with plain strings.
type chatREPL struct {
	sess  *session.Session
	out   io.Writer
	quiet bool
	// label precedes each reply; "" prints the bare text
	label string

	// markdown redraw; renderer is nil when disabled
	renderer   *glamour.TermRenderer
	termWidth  int
	termHeight int

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newChatREPL(sess *session.Session, out io.Writer, quiet bool) *chatREPL {
	return &chatREPL{sess: sess, out: out, quiet: quiet, label: "AI:"}
}

// prompt returns the prompt for the current input state.
func (r *chatREPL) prompt() string {
	if r.sess.Machine().State() == input.Composing {
		return promptComposing
	}
	return promptIdle
}

// begin registers the cancel function for the running operation.
func (r *chatREPL) begin(parent context.Context, timeout time.Duration) (context.Context, func()) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	return ctx, func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}
}

// Interrupt cancels the running exchange or command. It reports whether
// there was one.
func (r *chatREPL) Interrupt() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

// handleLine processes one line of input and reports whether to quit.
func (r *chatREPL) handleLine(ctx context.Context, line string) bool {
	switch st := r.sess.Feed(line).(type) {
	case input.Submit:
		r.exchange(ctx, st.Text)
	case input.Run:
		return r.runCommand(ctx, st.Command)
	case input.Quit:
		return true
	default:
		if notice := session.StepNotice(st); notice != "" {
			fmt.Fprintln(r.out, DimStyle.Render(notice))
		}
	}
	return false
}

func (r *chatREPL) runCommand(ctx context.Context, cmd input.Command) bool {
	ctx, done := r.begin(ctx, commandTimeout)
	defer done()

	out, err := r.sess.Apply(ctx, cmd)
	if err != nil {
		r.printError(err)
		return false
	}
	r.renderOutcome(out)
	return out.Exit
}

func (r *chatREPL) renderOutcome(out session.Outcome) {
	if out.ShowHelp {
		r.printHelp()
		return
	}
	if out.Notice != "" {
		style := ValueStyle
		if out.Saved != "" || out.Reset {
			style = SuccessStyle
		}
		fmt.Fprintln(r.out, style.Render(out.Notice))
	}
	for _, line := range out.Lines {
		fmt.Fprintln(r.out, "  "+line)
	}
}

// exchange streams one reply and reports failures inline.
func (r *chatREPL) exchange(ctx context.Context, text string) {
	if _, err := r.stream(ctx, text); err != nil {
		var te *stream.TransportError
		if errors.As(err, &te) && te.Canceled() {
			fmt.Fprintln(r.out, WarningStyle.Render("[cancelled]"))
			return
		}
		r.printError(err)
	}
}

// stream runs one exchange, writing fragments to the output as they
// arrive. Empty replies print nothing.
func (r *chatREPL) stream(ctx context.Context, text string) (string, error) {
	ctx, done := r.begin(ctx, 0)
	defer done()

	started := false
	var last string
	sinks := stream.Sinks{
		OnDelta: func(fragment string) {
			if !started && r.label != "" {
				fmt.Fprint(r.out, AssistantLabelStyle.Render(r.label)+" ")
			}
			started = true
			fmt.Fprint(r.out, fragment)
			last = fragment
		},
		OnDone: func(string) {
			if started && !strings.HasSuffix(last, "\n") {
				fmt.Fprintln(r.out)
			}
		},
	}

	full, err := r.sess.Exchange(ctx, text, sinks)
	if err != nil {
		return full, err
	}
	r.redrawMarkdown(full)
	return full, nil
}

// redrawMarkdown replaces the raw streamed reply with rendered markdown
// when the reply is still entirely on screen.
func (r *chatREPL) redrawMarkdown(full string) {
	if r.renderer == nil || strings.TrimSpace(full) == "" {
		return
	}
	raw := full
	if r.label != "" {
		raw = r.label + " " + full
	}
	rows := streamedRows(strings.TrimSuffix(raw, "\n"), r.termWidth)
	if r.termHeight > 0 && rows >= r.termHeight-1 {
		return
	}
	rendered, err := r.renderer.Render(full)
	if err != nil {
		return
	}
	fmt.Fprintf(r.out, "\x1b[%dA\r\x1b[J", rows)
	if r.label != "" {
		fmt.Fprintln(r.out, AssistantLabelStyle.Render(r.label))
	}
	fmt.Fprint(r.out, strings.TrimLeft(rendered, "\n"))
}

func (r *chatREPL) printError(err error) {
	fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
}

func (r *chatREPL) printHelp() {
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, line := range session.HelpLines() {
		fmt.Fprintln(r.out, "  "+line)
	}
	fmt.Fprintln(r.out, DimStyle.Render("Ctrl+C cancels a streaming reply. Ctrl+D or /exit quits."))
}

func (r *chatREPL) printWelcome() {
	fmt.Fprintf(r.out, "%s %s\n", TitleStyle.Render("✨ gptcli chat (streaming)"), DimStyle.Render(r.sess.Model()))
	if r.quiet {
		return
	}
	if r.sess.Restored() {
		turns := len(r.sess.Conversation().Transcript())
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Restored %d messages from the last session. /clear starts over.", turns)))
	}
	fmt.Fprintln(r.out, DimStyle.Render("Time hint: "+onOff(r.sess.IncludeTime())))
	fmt.Fprintln(r.out, RenderSeparator())
	r.printHelp()
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printGoodbye() {
	if !r.quiet {
		fmt.Fprintln(r.out, DimStyle.Render("Session length "+formatDuration(r.sess.Duration())))
	}
	fmt.Fprintln(r.out, "Bye!")
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive REPL.
func HandleChatCommand(args Args) error {
	logFile := RedirectLog()
	defer logFile.Close()

	rt, err := OpenRuntime(args, RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	repl := newChatREPL(rt.Session, os.Stdout, args.Quiet)
	if rt.Config.UI.Markdown && IsStdoutTTY() {
		repl.termWidth = GetTerminalWidth()
		_, repl.termHeight, _ = termSize()
		if r, err := newMarkdownRenderer(rt.Config.UI.Theme, wrapWidth(rt.Config.UI.WordWrap)); err == nil {
			repl.renderer = r
		}
	}

	// Presets edited while chatting take effect without a restart.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if rt.PresetsPath != "" {
		w, err := config.WatchPresets(ctx, rt.PresetsPath, func(p config.Presets, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: presets not reloaded: %v\n", err)
				return
			}
			rt.Session.ReloadPresets(p)
		})
		if err == nil {
			defer w.Close()
		}
	}

	repl.printWelcome()

	lines := NewChatCLI()
	defer lines.Close()

	// The terminal is in cooked mode while a reply streams, so Ctrl+C
	// arrives as SIGINT.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for sig := range sigChan {
			if repl.Interrupt() {
				continue
			}
			if sig == syscall.SIGTERM {
				stop()
			}
		}
	}()

	for ctx.Err() == nil {
		line, err := lines.ReadInput(repl.prompt())
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			fmt.Println()
			break
		}
		if repl.handleLine(ctx, line) {
			break
		}
	}

	repl.printGoodbye()
	return nil
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neisii/chatgpt-cli/internal/export"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/stream"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.KeyDebug) {
		m.keyDebug.Toggle()
		m.keyDebug.Record(msg)
		m.layout()
		m.refresh()
		return m, nil
	}
	m.keyDebug.Record(msg)

	// Ctrl+Q quits from anywhere.
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if m.saving {
		return m.handleSaveKey(msg)
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Cancel), msg.String() == "?":
			m.showHelp = false
		case msg.String() == "q", key.Matches(msg, m.keys.Interrupt):
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Interrupt):
		if m.busy() {
			m.cancel.cancel()
			return m, nil
		}
		return m.quit()

	case key.Matches(msg, m.keys.Cancel):
		if m.busy() {
			m.cancel.cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case msg.String() == "?" && m.input.Value() == "":
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.ToggleTime):
		on := m.sess.ToggleTime()
		cmd := m.setNotice("Time hint: "+onOff(on), false)
		return m, cmd

	case key.Matches(msg, m.keys.SaveClip):
		cmd := m.saveReplyCmd(m.opts.ClipPath)
		return m, cmd

	case key.Matches(msg, m.keys.SaveAs):
		if m.sess.LastReply() == "" {
			cmd := m.setNotice("No reply to save yet", true)
			return m, cmd
		}
		m.saving = true
		m.saveInput.SetValue("")
		m.input.Blur()
		cmd := m.saveInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Copy):
		cmd := m.copyReplyCmd()
		return m, cmd

	case key.Matches(msg, m.keys.ClearInput):
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.armSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		path := strings.TrimSpace(m.saveInput.Value())
		if path == "" {
			path = m.opts.ClipPath
		}
		m.closeSavePrompt()
		cmd := tea.Batch(m.saveReplyCmd(util.ExpandHome(path)), textarea.Blink)
		return m, cmd
	case tea.KeyEsc, tea.KeyCtrlC:
		m.closeSavePrompt()
		return m, textarea.Blink
	}

	var cmd tea.Cmd
	m.saveInput, cmd = m.saveInput.Update(msg)
	return m, cmd
}

func (m *Model) closeSavePrompt() {
	m.saving = false
	m.saveInput.Blur()
	m.input.Focus()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel.cancel()
	m.quitting = true
	return m, tea.Quit
}

// =============================================================================
// SUBMISSION
// =============================================================================

// armSubmit starts the paste guard for the current input. The text is fed
// to the session only if no pasted newline arrives within the delay.
func (m Model) armSubmit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	if strings.TrimSpace(value) == "" && m.sess.Machine().State() != input.Composing {
		return m, nil
	}
	ticket := m.guard.Arm(value)
	return m, tea.Tick(m.guard.Delay, func(time.Time) tea.Msg {
		return PasteSettledMsg{Ticket: ticket}
	})
}

func (m Model) handlePasteSettled(msg PasteSettledMsg) (tea.Model, tea.Cmd) {
	text, ok := m.guard.Settle(msg.Ticket, m.input.Value())
	if !ok {
		return m, nil
	}
	return m.submit(text)
}

// submit feeds text to the input machine. While composing, each line of a
// multi-line input is its own step so a pasted "/end" closes the block.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	lines := []string{text}
	if m.sess.Machine().State() == input.Composing {
		lines = strings.Split(text, "\n")
	}

	var cmds []tea.Cmd
	for i, line := range lines {
		step := m.sess.Feed(line)
		if ig, ok := step.(input.Ignored); ok && ig.Reason == input.ReasonBusy {
			// Lines not fed stay in the input so they can be sent once the
			// reply ends. Steps already applied keep their commands.
			if i > 0 {
				m.input.SetValue(strings.Join(lines[i:], "\n"))
				m.refresh()
			}
			cmds = append(cmds, m.setNotice(ig.Reason, true))
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m, cmd = m.applyStep(step)
		cmds = append(cmds, cmd)
		if m.quitting {
			break
		}
	}

	m.input.Reset()
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) applyStep(step input.Step) (Model, tea.Cmd) {
	switch st := step.(type) {
	case input.Submit:
		return m.startExchange(st.Text)
	case input.Run:
		if input.MutatesConversation(st.Command) {
			// Applied on the event loop so a following submission sees it.
			return m.applyCommand(st.Command)
		}
		return m, m.commandCmd(st.Command)
	case input.Quit:
		m.cancel.cancel()
		m.quitting = true
		return m, tea.Quit
	case input.Appended:
		return m, nil
	}
	if n := session.StepNotice(step); n != "" {
		m.addEntry(entryNotice, n)
	}
	return m, nil
}

// =============================================================================
// EXCHANGES
// =============================================================================

func (m Model) startExchange(text string) (Model, tea.Cmd) {
	x := stream.NewExchange(m.sess.Model())
	m.entries = append(m.entries,
		entry{kind: entryUser, text: text},
		entry{kind: entryAssistant, state: replyStreaming})
	m.streamID = x.ID
	m.streamEntry = len(m.entries) - 1
	m.buffer.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel.set(cancel)

	m.refresh()
	m.viewport.GotoBottom()
	m.exchanges.start()
	return m, tea.Batch(m.exchangeCmd(ctx, cancel, x, text), m.spinner.Tick, streamTickCmd())
}

// exchangeCmd runs one exchange. Fragments reach Update through the
// attached program; the result arrives as StreamDoneMsg.
func (m Model) exchangeCmd(ctx context.Context, cancel context.CancelFunc, x *stream.Exchange, text string) tea.Cmd {
	sess, out, tracker := m.sess, m.sender, m.exchanges
	return func() tea.Msg {
		defer tracker.done()
		defer cancel()
		full, err := sess.Run(ctx, x, text, stream.Sinks{
			OnStart: func() {
				out.Send(StreamStartMsg{ExchangeID: x.ID, StartTime: time.Now()})
			},
			OnDelta: func(fragment string) {
				out.Send(StreamDeltaMsg{ExchangeID: x.ID, Fragment: fragment})
			},
		})
		if err != nil {
			log.Printf("chat: exchange %s failed: %v", x.ID, err)
		}
		return StreamDoneMsg{ExchangeID: x.ID, Full: full, Err: err, Stats: x.Stats()}
	}
}

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	if msg.ExchangeID != m.streamID {
		return m, nil
	}
	log.Printf("chat: exchange %s streaming", msg.ExchangeID)
	return m, nil
}

func (m Model) handleStreamDelta(msg StreamDeltaMsg) (tea.Model, tea.Cmd) {
	if msg.ExchangeID != m.streamID || !m.busy() {
		return m, nil
	}
	// Rendered on the next tick.
	m.buffer.Write(msg.Fragment)
	return m, nil
}

// handleStreamTick moves buffered fragments into the history at a fixed
// frame rate.
func (m Model) handleStreamTick(_ StreamTickMsg) (tea.Model, tea.Cmd) {
	if !m.busy() {
		return m, nil
	}
	if content, ok := m.buffer.Flush(); ok {
		m.entries[m.streamEntry].text += content
		m.refresh()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	if msg.ExchangeID != m.streamID || !m.busy() {
		return m, nil
	}
	m.buffer.Reset()
	m.cancel.set(nil)
	m.streamID = ""

	e := &m.entries[m.streamEntry]
	e.text = msg.Full

	var te *stream.TransportError
	switch {
	case msg.Err == nil:
		e.state = replyDone
		e.rendered = m.renderMarkdown(msg.Full)
	case errors.As(msg.Err, &te) && te.Canceled():
		e.state = replyCancelled
	default:
		e.state = replyFailed
		e.errText = msg.Err.Error()
		if te != nil {
			e.errText = te.Err.Error()
		}
	}

	log.Printf("chat: exchange %s done: %d fragments, %d bytes in %s",
		msg.ExchangeID, msg.Stats.Fragments, msg.Stats.Bytes, msg.Stats.Duration)

	m.refresh()
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) commandCmd(cmd input.Command) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		out, err := sess.Apply(ctx, cmd)
		return CommandResultMsg{Command: cmd, Outcome: out, Err: err}
	}
}

// applyCommand runs cmd synchronously.
func (m Model) applyCommand(cmd input.Command) (Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := m.sess.Apply(ctx, cmd)
	return m.applyOutcome(CommandResultMsg{Command: cmd, Outcome: out, Err: err})
}

func (m Model) handleCommandResult(msg CommandResultMsg) (tea.Model, tea.Cmd) {
	return m.applyOutcome(msg)
}

func (m Model) applyOutcome(msg CommandResultMsg) (Model, tea.Cmd) {
	if msg.Err != nil {
		m.addEntry(entryError, msg.Err.Error())
		m.refresh()
		return m, nil
	}

	out := msg.Outcome
	var cmd tea.Cmd
	if out.Reset {
		if m.busy() {
			// Keep the exchange that started after the clear was issued.
			m.entries = append([]entry(nil), m.entries[m.streamEntry-1:]...)
			m.streamEntry = 1
		} else {
			m.entries = nil
		}
		m.optimizer.Reset()
	}
	if out.ShowHelp {
		m.showHelp = true
	} else if out.Notice != "" || len(out.Lines) > 0 {
		lines := out.Lines
		if out.Notice != "" {
			lines = append([]string{out.Notice}, lines...)
		}
		m.addEntry(entryNotice, strings.Join(lines, "\n"))
	}
	if out.Saved != "" {
		cmd = m.setNotice("Saved: "+out.Saved, false)
	}
	m.refresh()
	if out.Exit {
		m.cancel.cancel()
		m.quitting = true
		return m, tea.Batch(cmd, tea.Quit)
	}
	return m, cmd
}

// =============================================================================
// SAVE AND COPY
// =============================================================================

func (m *Model) saveReplyCmd(path string) tea.Cmd {
	reply := m.sess.LastReply()
	if reply == "" {
		return m.setNotice("No reply to save yet", true)
	}
	return func() tea.Msg {
		written, err := export.WriteClip(path, reply)
		return SavedMsg{Path: written, Err: err}
	}
}

func (m *Model) copyReplyCmd() tea.Cmd {
	reply := m.sess.LastReply()
	if reply == "" {
		return m.setNotice("No reply to copy yet", true)
	}
	return func() tea.Msg {
		err := copyToClipboard(reply)
		return CopiedMsg{Chars: utf8.RuneCountInString(reply), Err: err}
	}
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/ui/components"
	"github.com/neisii/chatgpt-cli/internal/ui/styles"
)

// =============================================================================
// HISTORY ENTRIES
// =============================================================================

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryError
)

// replyState tracks an assistant entry through its exchange.
type replyState int

const (
	replyStreaming replyState = iota
	replyDone
	replyFailed
	replyCancelled
)

// entry is one block of the history view.
type entry struct {
	kind  entryKind
	text  string
	state replyState

	// errText is the failure shown under a failed reply.
	errText string
	// rendered caches the glamour output of a finished reply.
	rendered string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

const (
	inputLines     = 3
	maxInputChars  = 100000
	noticeTTL      = 1500 * time.Millisecond
	commandTimeout = 30 * time.Second
)

// Options configures the chat screen.
type Options struct {
	Theme *styles.Theme
	// ClipPath is where Ctrl+O writes the last reply.
	ClipPath string
	// PasteDelay is how long Enter waits for a paste to finish arriving.
	PasteDelay time.Duration
	// Markdown renders finished replies with glamour.
	Markdown bool
	// WordWrap caps the rendered reply width. Zero follows the window.
	WordWrap int
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	sess  *session.Session
	opts  Options
	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int

	// Widgets
	viewport  viewport.Model
	input     textarea.Model
	saveInput textinput.Model
	spinner   spinner.Model

	statusBar *components.StatusBar
	help      *components.HelpOverlay
	keyDebug  *components.KeyDebug

	entries []entry

	// Streaming. streamID is empty when no exchange is running.
	streamID    string
	streamEntry int
	buffer      *StreamingBuffer
	optimizer   *ViewportOptimizer
	cancel      *cancelManager
	exchanges   *exchangeTracker
	sender      *sender
	guard       *input.PasteGuard

	renderer      *glamour.TermRenderer
	rendererWidth int

	// Overlays and status
	showHelp  bool
	saving    bool
	notice    string
	noticeErr bool
	noticeSeq int
	quitting  bool
}

// New creates the chat screen for sess. A restored conversation is shown
// as history.
func New(sess *session.Session, opts Options) Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme("auto")
	}
	theme := opts.Theme
	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Message (Enter sends, Ctrl+J new line, /help for commands)"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = maxInputChars
	ta.SetHeight(inputLines)
	// Enter submits; Ctrl+J is handled by the model.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	si := textinput.New()
	si.Prompt = "Save as: "
	si.Placeholder = opts.ClipPath
	si.CharLimit = 1024

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 8,
	}
	sp.Style = theme.StatusBusy

	m := Model{
		sess:      sess,
		opts:      opts,
		theme:     theme,
		keys:      keys,
		viewport:  vp,
		input:     ta,
		saveInput: si,
		spinner:   sp,
		statusBar: components.NewStatusBar(theme),
		help:      components.NewHelpOverlay(theme, keys.HelpEntries(), session.HelpLines()),
		keyDebug:  components.NewKeyDebug(theme),
		buffer:    NewStreamingBuffer(),
		optimizer: NewViewportOptimizer(),
		cancel:    newCancelManager(),
		exchanges: &exchangeTracker{},
		sender:    &sender{},
		guard:     input.NewPasteGuard(opts.PasteDelay),
	}

	for _, msg := range sess.Conversation().Transcript() {
		switch msg.Role {
		case model.RoleUser:
			m.entries = append(m.entries, entry{kind: entryUser, text: msg.Content})
		case model.RoleAssistant:
			m.entries = append(m.entries, entry{kind: entryAssistant, text: msg.Content, state: replyDone})
		}
	}
	if sess.Restored() {
		m.addEntry(entryNotice, "Restored the previous conversation. /clear starts over.")
	}
	return m
}

// Attach connects the model to a running program so exchange goroutines
// can stream fragments into Update.
func (m Model) Attach(send func(tea.Msg)) {
	m.sender.attach(send)
}

// CancelStream stops the running exchange, if any.
func (m Model) CancelStream() bool {
	return m.cancel.cancel()
}

// WaitStream blocks until exchange goroutines have committed their replies,
// or timeout passes. It reports whether they all finished.
func (m Model) WaitStream(timeout time.Duration) bool {
	return m.exchanges.wait(timeout)
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case PasteSettledMsg:
		return m.handlePasteSettled(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamDeltaMsg:
		return m.handleStreamDelta(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case CommandResultMsg:
		return m.handleCommandResult(msg)

	case SavedMsg:
		if msg.Err != nil {
			cmd := m.setNotice("Save failed: "+msg.Err.Error(), true)
			return m, cmd
		}
		cmd := m.setNotice("Saved: "+msg.Path, false)
		return m, cmd

	case CopiedMsg:
		if msg.Err != nil {
			cmd := m.setNotice("Copy failed: "+msg.Err.Error(), true)
			return m, cmd
		}
		cmd := m.setNotice(pluralize(msg.Chars, "character", "characters")+" copied", false)
		return m, cmd

	case ClearNoticeMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil

	case PresetsReloadedMsg:
		if msg.Err != nil {
			cmd := m.setNotice("Presets not reloaded: "+msg.Err.Error(), true)
			return m, cmd
		}
		m.sess.ReloadPresets(msg.Presets)
		cmd := m.setNotice("Presets reloaded", false)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	// Cursor blink and other widget messages.
	var cmd tea.Cmd
	if m.saving {
		m.saveInput, cmd = m.saveInput.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout()

	if m.opts.Markdown {
		if w := m.wrapWidth(); m.renderer == nil || w != m.rendererWidth {
			m.renderer = newRenderer(m.theme.GlamourStyle(), w)
			m.rendererWidth = w
			for i := range m.entries {
				e := &m.entries[i]
				if e.kind == entryAssistant && e.state == replyDone {
					e.rendered = m.renderMarkdown(e.text)
				}
			}
		}
	}

	m.optimizer.Reset()
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// layout sizes the widgets. Top to bottom: status line, key debug box,
// history, input box.
func (m *Model) layout() {
	const (
		statusHeight   = 1
		inputBoxHeight = inputLines + 2
		debugHeight    = 3
	)

	reserved := statusHeight + inputBoxHeight
	if m.keyDebug.Visible {
		reserved += debugHeight
	}
	vpHeight := m.height - reserved
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vpHeight

	// Rounded border plus one column of padding each side.
	m.input.SetWidth(max(m.width-4, 10))
	m.saveInput.Width = max(m.width-4-len(m.saveInput.Prompt), 10)

	m.statusBar.SetWidth(m.width)
	m.help.SetSize(m.width, m.height)
	m.keyDebug.Width = max(m.width/2, 24)
	m.theme.SetSize(m.width, m.height)
}

// contentWidth is the width history blocks are rendered at.
func (m Model) contentWidth() int {
	return max(m.width-2, 10)
}

// wrapWidth is the glamour word wrap for the current window.
func (m Model) wrapWidth() int {
	w := m.contentWidth() - 2
	if m.opts.WordWrap > 0 && m.opts.WordWrap < w {
		w = m.opts.WordWrap
	}
	return max(w, 10)
}

// refresh re-renders the history into the viewport. It follows the bottom
// only when the user has not scrolled away from it.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	content := m.renderHistory()
	if m.optimizer.ShouldUpdate(content) {
		m.viewport.SetContent(content)
		if atBottom {
			m.viewport.GotoBottom()
		}
	}
}

func (m Model) busy() bool {
	return m.streamID != ""
}

func (m *Model) addEntry(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text, state: replyDone})
}

// setNotice shows text in the status line until a newer notice replaces
// it or noticeTTL passes.
func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Seq: seq}
	})
}

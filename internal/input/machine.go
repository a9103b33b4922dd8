// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package input

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// State is the input mode.
type State int

const (
	// Idle accepts single-line submissions. It is the initial state.
	Idle State = iota
	// Composing buffers lines until /end or /cancel.
	Composing
	// Busy means an exchange is in flight; submissions are refused.
	Busy
	// Terminal means the session is over.
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case Busy:
		return "busy"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// =============================================================================
// STEPS
// =============================================================================

// Step is the outcome of feeding one line to the Machine.
type Step interface {
	isStep()
}

type (
	// Submit carries user text to send. The machine is now Busy.
	Submit struct{ Text string }
	// Run carries a command for the session to execute.
	Run struct{ Command Command }
	// Composed reports that multi-line composition started.
	Composed struct{}
	// Appended reports a line added to the composition buffer.
	Appended struct{ Lines int }
	// Discarded reports a composition that ended without a submission.
	Discarded struct{ Notice string }
	// Ignored reports input that had no effect. Reason may be empty.
	Ignored struct{ Reason string }
	// Quit reports that the session ended.
	Quit struct{}
)

func (Submit) isStep()    {}
func (Run) isStep()       {}
func (Composed) isStep()  {}
func (Appended) isStep()  {}
func (Discarded) isStep() {}
func (Ignored) isStep()   {}
func (Quit) isStep()      {}

// Notices shown to the user.
const (
	NoticeEmptyComposition = "Nothing to send."
	NoticeCancelled        = "Multi-line input discarded."
	ReasonBusy             = "A reply is still streaming; wait or press Esc to cancel."
	ReasonNotComposing     = "Not in multi-line mode."
	ReasonAlreadyComposing = "Already in multi-line mode."
	ReasonTerminal         = "Session has ended."
)

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the input mode state machine. It is safe for concurrent use:
// the TUI feeds it from the event loop while Finish is called when a stream
// goroutine completes.
type Machine struct {
	mu    sync.Mutex
	state State
	lines []string
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the current mode.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Buffer returns a copy of the composition buffer.
func (m *Machine) Buffer() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// Feed classifies one line of user input and advances the state.
func (m *Machine) Feed(line string) Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Terminal {
		return Ignored{Reason: ReasonTerminal}
	}

	if cmd, ok := Parse(line); ok {
		return m.command(cmd, line)
	}

	switch m.state {
	case Busy:
		return Ignored{Reason: ReasonBusy}
	case Composing:
		m.lines = append(m.lines, line)
		return Appended{Lines: len(m.lines)}
	default:
		text := strings.TrimSpace(line)
		if text == "" {
			return Ignored{}
		}
		m.state = Busy
		return Submit{Text: normalize(text)}
	}
}

func (m *Machine) command(cmd Command, raw string) Step {
	switch cmd.(type) {
	case Exit:
		m.state = Terminal
		m.lines = nil
		return Quit{}

	case Multiline:
		switch m.state {
		case Busy:
			return Ignored{Reason: ReasonBusy}
		case Composing:
			return Ignored{Reason: ReasonAlreadyComposing}
		}
		m.state = Composing
		m.lines = nil
		return Composed{}

	case End:
		if m.state != Composing {
			return Ignored{Reason: ReasonNotComposing}
		}
		text := strings.TrimSpace(strings.Join(m.lines, "\n"))
		m.lines = nil
		if text == "" {
			m.state = Idle
			return Discarded{Notice: NoticeEmptyComposition}
		}
		m.state = Busy
		return Submit{Text: normalize(text)}

	case Cancel:
		if m.state != Composing {
			return Ignored{Reason: ReasonNotComposing}
		}
		m.lines = nil
		m.state = Idle
		return Discarded{Notice: NoticeCancelled}

	case Unknown:
		// Unrecognized slash words are content while composing, e.g. a path.
		if m.state == Composing {
			m.lines = append(m.lines, raw)
			return Appended{Lines: len(m.lines)}
		}
	}

	if m.state == Busy && MutatesConversation(cmd) {
		return Ignored{Reason: ReasonBusy}
	}
	return Run{Command: cmd}
}

// Finish marks the in-flight exchange complete: Busy becomes Idle. Other
// states are left alone so a late completion cannot revive a terminated session.
func (m *Machine) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Busy {
		m.state = Idle
	}
}

// Terminate moves the machine to Terminal from any state.
func (m *Machine) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Terminal
	m.lines = nil
}

// normalize puts submitted text into Unicode NFC form so that visually
// identical input produces identical requests and transcripts.
func normalize(s string) string {
	return norm.NFC.String(s)
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"/help", Help{}},
		{"  /H  ", Help{}},
		{"/clear", Clear{}},
		{"/model", Model{}},
		{"/model gpt-4o", Model{Name: "gpt-4o"}},
		{"/models", Models{}},
		{"/sys Be   terse.", System{Text: "Be   terse."}},
		{"/system", System{}},
		{"/preset coder", Preset{Name: "coder"}},
		{"/presets", Preset{}},
		{`/save "my chat.md"`, Save{Path: "my chat.md"}},
		{"/save", Save{}},
		{"/time", Time{}},
		{"/multi", Multiline{}},
		{"/end", End{}},
		{"/cancel", Cancel{}},
		{"/quit", Exit{}},
		{"/bogus arg", Unknown{Name: "/bogus"}},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.line)
		if !ok {
			t.Errorf("Parse(%q) not recognized as command", tt.line)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.line, got, tt.want)
		}
	}
}

func TestParse_NotCommand(t *testing.T) {
	for _, line := range []string{"hello", "", "  what is /usr?"} {
		if _, ok := Parse(line); ok {
			t.Errorf("Parse(%q) treated as command", line)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a b  c", []string{"a", "b", "c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`'it''s'`, []string{"its"}},
		{`"say \"hi\""`, []string{`say "hi"`}},
		{`""`, []string{""}},
		{"日本 語", []string{"日本", "語"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCommandLine(tt.in), "splitCommandLine(%q)", tt.in)
	}
}

func TestMutatesConversation(t *testing.T) {
	assert.True(t, MutatesConversation(Clear{}))
	assert.True(t, MutatesConversation(System{Text: "x"}))
	assert.False(t, MutatesConversation(System{}))
	assert.True(t, MutatesConversation(Preset{Name: "coder"}))
	assert.False(t, MutatesConversation(Preset{}))
	assert.False(t, MutatesConversation(Model{Name: "x"}))
	assert.False(t, MutatesConversation(Save{}))
}

// =============================================================================
// MACHINE TESTS
// =============================================================================

func TestMachine_SingleLine(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Idle, m.State())

	step := m.Feed("  hello  ")
	assert.Equal(t, Submit{Text: "hello"}, step)
	assert.Equal(t, Busy, m.State())

	m.Finish()
	assert.Equal(t, Idle, m.State())
}

func TestMachine_EmptyLineIgnored(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Ignored{}, m.Feed("   "))
	assert.Equal(t, Idle, m.State())
}

func TestMachine_BusyGate(t *testing.T) {
	m := NewMachine()
	require.IsType(t, Submit{}, m.Feed("first"))

	assert.Equal(t, Ignored{Reason: ReasonBusy}, m.Feed("second"))
	assert.Equal(t, Ignored{Reason: ReasonBusy}, m.Feed("/clear"))
	assert.Equal(t, Ignored{Reason: ReasonBusy}, m.Feed("/sys new prompt"))
	assert.Equal(t, Ignored{Reason: ReasonBusy}, m.Feed("/multi"))
	assert.Equal(t, Run{Command: Help{}}, m.Feed("/help"))
	assert.Equal(t, Run{Command: Model{Name: "x"}}, m.Feed("/model x"))
	assert.Equal(t, Busy, m.State())
}

func TestMachine_MultilineJoin(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Composed{}, m.Feed("/multi"))
	assert.Equal(t, Composing, m.State())

	assert.Equal(t, Appended{Lines: 1}, m.Feed("a"))
	assert.Equal(t, Appended{Lines: 2}, m.Feed("b"))
	assert.Equal(t, []string{"a", "b"}, m.Buffer())

	assert.Equal(t, Submit{Text: "a\nb"}, m.Feed("/end"))
	assert.Equal(t, Busy, m.State())
	assert.Empty(t, m.Buffer())
}

func TestMachine_MultilineTrimsEdgesOnly(t *testing.T) {
	m := NewMachine()
	m.Feed("/multi")
	m.Feed("")
	m.Feed("  indented")
	m.Feed("")
	m.Feed("tail  ")
	m.Feed("   ")
	assert.Equal(t, Submit{Text: "indented\n\ntail"}, m.Feed("/end"))
}

func TestMachine_MultilineEmptyDiscarded(t *testing.T) {
	m := NewMachine()
	m.Feed("/multi")
	m.Feed("   ")
	m.Feed("")
	assert.Equal(t, Discarded{Notice: NoticeEmptyComposition}, m.Feed("/end"))
	assert.Equal(t, Idle, m.State())
}

func TestMachine_MultilineCancel(t *testing.T) {
	m := NewMachine()
	m.Feed("/multi")
	m.Feed("draft")
	assert.Equal(t, Discarded{Notice: NoticeCancelled}, m.Feed("/cancel"))
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, m.Buffer())
}

func TestMachine_ComposingKeepsUnknownSlashLines(t *testing.T) {
	m := NewMachine()
	m.Feed("/multi")
	assert.Equal(t, Appended{Lines: 1}, m.Feed("/usr/local/bin is on PATH"))
	assert.Equal(t, Run{Command: Help{}}, m.Feed("/help"))
	assert.Equal(t, Composing, m.State())
}

func TestMachine_EndOutsideComposition(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Ignored{Reason: ReasonNotComposing}, m.Feed("/end"))
	assert.Equal(t, Ignored{Reason: ReasonNotComposing}, m.Feed("/cancel"))
}

func TestMachine_ExitFromAnyState(t *testing.T) {
	for _, setup := range []func(*Machine){
		func(*Machine) {},
		func(m *Machine) { m.Feed("/multi") },
		func(m *Machine) { m.Feed("hi") },
	} {
		m := NewMachine()
		setup(m)
		assert.Equal(t, Quit{}, m.Feed("/exit"))
		assert.Equal(t, Terminal, m.State())
		assert.Equal(t, Ignored{Reason: ReasonTerminal}, m.Feed("hello"))

		m.Finish()
		assert.Equal(t, Terminal, m.State(), "Finish must not leave Terminal")
	}
}

func TestMachine_NormalizesNFC(t *testing.T) {
	m := NewMachine()
	// "e" + combining acute accent composes to U+00E9.
	step := m.Feed("cafe\u0301")
	assert.Equal(t, Submit{Text: "caf\u00e9"}, step)
}

// =============================================================================
// PASTE GUARD TESTS
// =============================================================================

func TestPasteGuard_SendsWhenQuiet(t *testing.T) {
	g := NewPasteGuard(0)
	assert.Equal(t, DefaultPasteDelay, g.Delay)

	ticket := g.Arm("hello")
	text, ok := g.Settle(ticket, "hello")
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestPasteGuard_BlocksMultilinePaste(t *testing.T) {
	g := NewPasteGuard(0)
	ticket := g.Arm("line one")
	_, ok := g.Settle(ticket, "line one\nline two")
	assert.False(t, ok)
}

func TestPasteGuard_AllowsSingleLineGrowth(t *testing.T) {
	g := NewPasteGuard(0)
	ticket := g.Arm("abc")
	text, ok := g.Settle(ticket, "abcd")
	assert.True(t, ok)
	assert.Equal(t, "abc", text, "the snapshot taken at Enter is what gets sent")
}

func TestPasteGuard_Superseded(t *testing.T) {
	g := NewPasteGuard(0)
	first := g.Arm("a")
	second := g.Arm("a")

	_, ok := g.Settle(first, "a")
	assert.False(t, ok)
	_, ok = g.Settle(second, "a")
	assert.True(t, ok)
	_, ok = g.Settle(second, "a")
	assert.False(t, ok, "a ticket settles once")
}

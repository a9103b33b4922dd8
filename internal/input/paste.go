// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package input

import (
	"strings"
	"sync"
	"time"
)

// DefaultPasteDelay is how long Enter waits before sending.
const DefaultPasteDelay = 60 * time.Millisecond

// PasteGuard debounces Enter. Terminals without bracketed paste deliver a
// pasted block as ordinary keystrokes, so an embedded newline looks like
// Enter. The guard snapshots the input on Enter and, after Delay, only lets
// the send through if no multi-line text arrived in the meantime.
type PasteGuard struct {
	Delay time.Duration

	mu  sync.Mutex
	seq uint64
}

// Ticket identifies one armed Enter.
type Ticket struct {
	seq   uint64
	value string
}

// Value is the input snapshot taken when the ticket was armed.
func (t Ticket) Value() string { return t.value }

// NewPasteGuard returns a guard with the given delay, or DefaultPasteDelay
// when delay is not positive.
func NewPasteGuard(delay time.Duration) *PasteGuard {
	if delay <= 0 {
		delay = DefaultPasteDelay
	}
	return &PasteGuard{Delay: delay}
}

// Arm records an Enter press with the current input value. Arming again
// supersedes any earlier ticket.
func (g *PasteGuard) Arm(value string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return Ticket{seq: g.seq, value: value}
}

// Settle decides, once Delay has elapsed, whether the armed Enter sends.
// It returns the snapshot taken at Arm time and true when it should.
// A superseded ticket, or input that grew by text containing a newline,
// returns false.
func (g *PasteGuard) Settle(t Ticket, current string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t.seq != g.seq {
		return "", false
	}
	// Consume the ticket.
	g.seq++

	if current != t.value && len(current) > len(t.value) && strings.Contains(current, "\n") {
		return "", false
	}
	return t.value, true
}

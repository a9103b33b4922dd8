// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT
// =============================================================================

// cancelManager holds the cancel function of the running exchange. The
// exchange goroutine and Update both touch it, so Model keeps a pointer.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes and clears the stored function. It reports whether there
// was one.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	return true
}

// =============================================================================
// EXCHANGE TRACKING
// =============================================================================

// exchangeTracker counts exchange goroutines that have not returned yet.
// An exchange commits its reply to the session before it returns.
type exchangeTracker struct {
	wg sync.WaitGroup
}

// start is called on the event loop before the exchange command is handed
// to the program.
func (t *exchangeTracker) start() { t.wg.Add(1) }

func (t *exchangeTracker) done() { t.wg.Done() }

// wait blocks until every started exchange has returned or timeout passes.
// It reports whether they all returned.
func (t *exchangeTracker) wait(timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return true
	case <-time.After(timeout):
		return false
	}
}

// =============================================================================
// PROGRAM SENDER
// =============================================================================

// sender forwards messages from exchange goroutines to the running
// program. It is attached after tea.NewProgram, so Model keeps a pointer.
type sender struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func (s *sender) attach(fn func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = fn
}

// Send delivers msg, or drops it when no program is attached.
func (s *sender) Send(msg tea.Msg) {
	s.mu.RLock()
	fn := s.send
	s.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

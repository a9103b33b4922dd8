// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// StreamingBuffer batches reply fragments so the history is redrawn at most
// maxFPS times per second. A flush happens once batchSize fragments are
// pending or the frame interval has passed.
//
// Write is called from Update as StreamDeltaMsgs arrive; Flush runs on each
// StreamTickMsg. Both lock mu.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	fragments  int
	lastFlush  time.Time
	batchSize  int
	minFlushMs time.Duration
}

// NewStreamingBuffer creates a buffer flushing every 15 fragments or 30fps.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamingBufferWithConfig creates a buffer with custom thresholds.
// Out-of-range values fall back to the defaults.
func NewStreamingBufferWithConfig(batchSize, maxFPS int) *StreamingBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize:  batchSize,
		minFlushMs: time.Second / time.Duration(maxFPS),
		lastFlush:  time.Now(),
	}
}

// Write adds a fragment.
func (sb *StreamingBuffer) Write(fragment string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(fragment)
	sb.fragments++
}

// Flush returns the pending text when a size or time threshold is reached.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if !sb.shouldFlushLocked() {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns all pending text regardless of thresholds.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

// ShouldFlush reports whether Flush would return content.
func (sb *StreamingBuffer) ShouldFlush() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.shouldFlushLocked()
}

// caller must hold mu
func (sb *StreamingBuffer) shouldFlushLocked() bool {
	if sb.buffer.Len() == 0 {
		return false
	}
	return sb.fragments >= sb.batchSize || time.Since(sb.lastFlush) >= sb.minFlushMs
}

// caller must hold mu
func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.fragments = 0
	sb.lastFlush = time.Now()
	return content
}

// Reset drops pending text, for a cancelled or replaced exchange.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.fragments = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of fragments waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.fragments
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next StreamTickMsg, one frame at 30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

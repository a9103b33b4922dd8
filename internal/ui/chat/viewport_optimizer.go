// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"hash/fnv"
	"sync"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer skips viewport.SetContent calls whose content did not
// change since the last one, which is common on stream ticks with no new
// fragments and on status-only updates.
type ViewportOptimizer struct {
	mu       sync.Mutex
	lastHash uint64
	primed   bool
	updates  uint64
	skips    uint64
}

// NewViewportOptimizer creates an optimizer that accepts the first update.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{}
}

// ShouldUpdate reports whether content differs from the last accepted
// content, and records it if so.
func (vo *ViewportOptimizer) ShouldUpdate(content string) bool {
	h := hashContent(content)

	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.updates++
	if vo.primed && h == vo.lastHash {
		vo.skips++
		return false
	}
	vo.lastHash = h
	vo.primed = true
	return true
}

// Reset forces the next ShouldUpdate to succeed, e.g. after a resize.
func (vo *ViewportOptimizer) Reset() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.primed = false
}

// Stats returns the number of update attempts and how many were skipped.
func (vo *ViewportOptimizer) Stats() (updates, skips uint64) {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	return vo.updates, vo.skips
}

func hashContent(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neisii/chatgpt-cli/internal/model"
)

// State is the lifecycle phase of an Exchange.
type State int

const (
	StatePending State = iota
	StateStreaming
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats summarizes a finished exchange.
type Stats struct {
	Fragments           int
	Bytes               int
	TimeToFirstFragment time.Duration
	Duration            time.Duration
}

// Exchange tracks one request/response cycle. It wraps RunExchange and keeps
// the accumulated text and state readable from other goroutines, such as a
// UI ticker, while the stream runs.
type Exchange struct {
	ID    string
	Model string

	mu        sync.RWMutex
	text      []byte
	state     State
	err       error
	fragments int
	started   time.Time
	first     time.Time
	finished  time.Time
}

// NewExchange creates a pending exchange for modelName.
func NewExchange(modelName string) *Exchange {
	return &Exchange{
		ID:    uuid.New().String(),
		Model: modelName,
		state: StatePending,
	}
}

// Run executes the exchange. The caller's sinks are invoked after the
// Exchange has recorded each event, so State and Text are current inside them.
// Inside OnDone the state is already Done or Failed.
func (x *Exchange) Run(ctx context.Context, t Transport, msgs []model.Message, sinks Sinks) (string, error) {
	var failed bool
	if t != nil {
		t = observedTransport{Transport: t, failed: &failed}
	}

	wrapped := Sinks{
		OnStart: func() {
			x.mu.Lock()
			x.state = StateStreaming
			x.started = time.Now()
			x.mu.Unlock()
			if sinks.OnStart != nil {
				sinks.OnStart()
			}
		},
		OnDelta: func(fragment string) {
			x.mu.Lock()
			if x.fragments == 0 {
				x.first = time.Now()
			}
			x.fragments++
			x.text = append(x.text, fragment...)
			x.mu.Unlock()
			if sinks.OnDelta != nil {
				sinks.OnDelta(fragment)
			}
		},
		OnDone: func(full string) {
			x.mu.Lock()
			x.finished = time.Now()
			x.text = []byte(full)
			if failed {
				x.state = StateFailed
			} else {
				x.state = StateDone
			}
			x.mu.Unlock()
			if sinks.OnDone != nil {
				sinks.OnDone(full)
			}
		},
	}

	full, err := RunExchange(ctx, t, x.Model, msgs, wrapped)

	x.mu.Lock()
	if err != nil {
		x.state = StateFailed
		x.err = err
	} else {
		x.state = StateDone
	}
	x.mu.Unlock()
	return full, err
}

// observedTransport records whether opening or reading the stream failed.
// RunExchange calls it from a single goroutine.
type observedTransport struct {
	Transport
	failed *bool
}

func (t observedTransport) Open(ctx context.Context, modelName string, msgs []model.Message) (Source, error) {
	src, err := t.Transport.Open(ctx, modelName, msgs)
	if err != nil {
		*t.failed = true
		return nil, err
	}
	return observedSource{Source: src, failed: t.failed}, nil
}

type observedSource struct {
	Source
	failed *bool
}

func (s observedSource) Next(ctx context.Context) (string, error) {
	fragment, err := s.Source.Next(ctx)
	if err != nil && err != io.EOF {
		*s.failed = true
	}
	return fragment, err
}

// Close forwards to the wrapped source when it holds a connection.
func (s observedSource) Close() error {
	if c, ok := s.Source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// State returns the current phase.
func (x *Exchange) State() State {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state
}

// Text returns the text accumulated so far.
func (x *Exchange) Text() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return string(x.text)
}

// Err returns the error that ended a failed exchange.
func (x *Exchange) Err() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.err
}

// Stats returns timing and size figures. Duration is measured up to now for
// an exchange that is still streaming.
func (x *Exchange) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	s := Stats{Fragments: x.fragments, Bytes: len(x.text)}
	if x.started.IsZero() {
		return s
	}
	if !x.first.IsZero() {
		s.TimeToFirstFragment = x.first.Sub(x.started)
	}
	end := x.finished
	if end.IsZero() {
		end = time.Now()
	}
	s.Duration = end.Sub(x.started)
	return s
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/neisii/chatgpt-cli/internal/model"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Source yields text fragments in delivery order. Next returns io.EOF after
// the last fragment. A Source may also implement io.Closer; RunExchange
// closes it when the exchange ends.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Transport opens a fragment source for one request. Open may block until
// the endpoint accepts the request.
type Transport interface {
	Open(ctx context.Context, model string, msgs []model.Message) (Source, error)
}

// Sinks are the render callbacks for one exchange. All are optional and all
// run on the goroutine that called RunExchange.
type Sinks struct {
	OnStart func()
	OnDelta func(fragment string)
	OnDone  func(full string)
}

// =============================================================================
// ERRORS
// =============================================================================

// TransportError reports a failed exchange together with the text that was
// delivered before the failure.
type TransportError struct {
	Partial string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream failed after %d bytes: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Canceled reports whether the exchange ended because its context was cancelled.
func (e *TransportError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// =============================================================================
// COORDINATOR
// =============================================================================

// RunExchange sends msgs to model and streams the reply.
//
// Invalid arguments are rejected with a *model.ValidationError before OnStart
// and before any network call. After OnStart, OnDone fires exactly once with
// the accumulated text, whether the stream ends normally, fails or is
// cancelled. Failures are returned as *TransportError carrying the same text.
// An empty reply is not special-cased.
func RunExchange(ctx context.Context, t Transport, modelName string, msgs []model.Message, sinks Sinks) (string, error) {
	if err := validate(t, modelName, msgs); err != nil {
		return "", err
	}

	if sinks.OnStart != nil {
		sinks.OnStart()
	}

	var acc strings.Builder
	defer func() {
		if sinks.OnDone != nil {
			sinks.OnDone(acc.String())
		}
	}()

	src, err := t.Open(ctx, modelName, msgs)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	for {
		fragment, err := src.Next(ctx)
		if err == io.EOF {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), &TransportError{Partial: acc.String(), Err: err}
		}

		acc.WriteString(fragment)
		if sinks.OnDelta != nil {
			sinks.OnDelta(fragment)
		}
	}
}

func validate(t Transport, modelName string, msgs []model.Message) error {
	if strings.TrimSpace(modelName) == "" {
		return &model.ValidationError{Field: "model", Message: "model name is empty"}
	}
	if t == nil {
		return &model.ValidationError{Field: "transport", Message: "no transport configured"}
	}
	return model.ValidateMessages(msgs)
}

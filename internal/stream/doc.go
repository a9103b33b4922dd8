// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives one streaming exchange with a completion endpoint.
//
// RunExchange opens a fragment Source through a Transport, forwards each
// fragment to the caller's Sinks in arrival order, accumulates the text and
// fires OnDone exactly once on every exit path. OnDone is the point at which
// callers commit the accumulated text to the conversation.
//
// # Key Types
//
//   - Transport: opens a Source for a model and message list
//   - Source: lazy, non-restartable sequence of text fragments (io.EOF ends it)
//   - Sinks: optional OnStart / OnDelta / OnDone callbacks
//   - TransportError: failure after OnStart, carrying the partial text
//   - Exchange: one exchange's observable state and timing
//
// The coordinator holds no state between calls. Keeping at most one exchange
// in flight per conversation is the caller's job (see package input).
//
// # Usage
//
//	text, err := stream.RunExchange(ctx, client, "gpt-4o-mini", conv.Snapshot(), stream.Sinks{
//	    OnDelta: func(s string) { fmt.Print(s) },
//	    OnDone:  func(full string) { conv.AppendAssistant(full) },
//	})
package stream

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to OpenAI-compatible chat completion endpoints.
//
// The client opens streaming /chat/completions requests and exposes the
// Server-Sent Events body as a lazy sequence of text fragments, which is the
// Transport the stream coordinator consumes.
//
// # Key Types
//
//   - Client: HTTP client with retry, backoff and a client-side rate limiter
//   - SSEReader: minimal Server-Sent Events parser
//   - StreamChunk: one decoded "chat.completion.chunk" payload
//   - APIError: non-2xx response that does not map to a sentinel error
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithBaseURL(cfg.API.BaseURL)
//	src, err := client.Open(ctx, "gpt-4o-mini", conv.Snapshot())
//	for {
//	    fragment, err := src.Next(ctx)
//	    if err == io.EOF { break }
//	    ...
//	}
//
// Only opening a request is retried. Once a fragment has been delivered a
// failure is returned to the caller as is.
//
// API keys are never logged; APIKeyMasked prints a SHA-256 fingerprint.
package cloud

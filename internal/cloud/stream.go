// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/stream"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the maximum size of a single SSE event payload (64KB).
const MaxChunkSize = 64 * 1024

// ErrChunkTooLarge is returned when an event exceeds MaxChunkSize.
var ErrChunkTooLarge = errors.New("stream event exceeds maximum size")

var doneSentinel = []byte("[DONE]")

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is one "chat.completion.chunk" event.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error,omitempty"`
}

// GetContent returns the content of the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone reports whether the server set a finish reason.
func (c *StreamChunk) IsDone() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != nil && *c.Choices[0].FinishReason != ""
}

// RateLimitError carries the server's Retry-After hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
	}
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	return "rate limited"
}

// Is lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// handleRateLimit builds a RateLimitError from a 429 response.
func handleRateLimit(resp *http.Response, body []byte) error {
	rl := &RateLimitError{}
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
		rl.Message = apiErr.Error.Message
	}

	retryAfter := resp.Header.Get("Retry-After")
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		rl.RetryAfter = time.Duration(seconds) * time.Second
	} else if t, err := http.ParseTime(retryAfter); err == nil {
		rl.RetryAfter = time.Until(t)
	}
	return rl
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses a text/event-stream body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader wraps r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the next event's type and data. Multiple data lines are
// joined with "\n". Comment lines (":") are skipped. io.EOF is returned once
// the body ends with no pending event.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var data []byte
	hasData := false

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			if errors.Is(err, io.EOF) && hasData {
				return eventType, data, nil
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if hasData {
				return eventType, data, nil
			}
			if err != nil {
				return "", nil, err
			}
			continue
		}

		switch {
		case line[0] == ':':
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			field := line[len("data:"):]
			if len(field) > 0 && field[0] == ' ' {
				field = field[1:]
			}
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, field...)
			hasData = true
			if len(data) > MaxChunkSize {
				return "", nil, ErrChunkTooLarge
			}
		}

		if err != nil {
			if hasData {
				return eventType, data, nil
			}
			return "", nil, err
		}
	}
}

// =============================================================================
// OPEN
// =============================================================================

// Open starts a streaming completion and returns once the server has accepted
// the request. Failures before the body starts are retried with exponential
// backoff; nothing after that point is retried.
func (c *Client) Open(ctx context.Context, modelName string, msgs []model.Message) (stream.Source, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(ChatRequest{
		Model:    modelName,
		Messages: toWire(msgs),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt, lastErr)):
			}
		}

		resp, err := c.openOnce(ctx, body)
		if err == nil {
			return newSSEStream(resp.Body), nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) openOnce(ctx context.Context, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	logRequest(req)

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &requestError{err: err}
	}
	logResponse(resp, time.Since(start))

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	defer resp.Body.Close()
	errBody, _ := readResponse(resp)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, handleRateLimit(resp, errBody)
	}
	return nil, handleErrorResponse(resp.StatusCode, errBody)
}

// =============================================================================
// FRAGMENT SOURCE
// =============================================================================

// sseStream yields the content deltas of an open response body.
type sseStream struct {
	body   io.ReadCloser
	reader *SSEReader

	closeOnce sync.Once
	done      bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	return &sseStream{body: body, reader: NewSSEReader(body)}
}

// Next returns the next non-empty content fragment, or io.EOF at the end of
// the stream. Role-only chunks are consumed silently; a chunk carrying a
// finish reason ends the stream after its content.
func (s *sseStream) Next(ctx context.Context) (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		if err := ctx.Err(); err != nil {
			s.Close()
			return "", err
		}

		_, data, err := s.reader.ReadEvent()
		if err != nil {
			s.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if errors.Is(err, io.EOF) {
				s.done = true
				return "", io.EOF
			}
			return "", fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(bytes.TrimSpace(data), doneSentinel) {
			s.done = true
			s.Close()
			return "", io.EOF
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.Close()
			return "", fmt.Errorf("%w: %v", ErrMalformedStream, err)
		}
		if chunk.Error != nil {
			s.Close()
			return "", &APIError{Code: chunk.Error.codeString(), Message: chunk.Error.Message, Status: http.StatusOK}
		}

		if chunk.IsDone() {
			// Some servers leave the connection open after the finish chunk.
			s.done = true
			s.Close()
		}
		if content := chunk.GetContent(); content != "" {
			return content, nil
		}
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/neisii/chatgpt-cli/internal/model"
)

// Configuration constants for the completions API.
const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds non-streaming requests such as ListModels.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts made to open a request.
	DefaultMaxRetries = 3

	// DefaultRateLimit and DefaultRateBurst bound how fast requests are opened.
	DefaultRateLimit = 2.0
	DefaultRateBurst = 4

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024
)

// DefaultUserAgent is sent with every request.
var DefaultUserAgent = "gptcli/dev"

var (
	sharedHTTPClient = &http.Client{
		Transport: newTransport(),
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; the request context bounds it.
	sharedStreamingClient = &http.Client{
		Transport: newTransport(),
	}
)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// Error variables for common API failures.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates an invalid or revoked API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account is out of quota.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrMalformedStream indicates an event the client could not decode.
	ErrMalformedStream = errors.New("malformed stream")
)

// APIError is a non-2xx response that does not map to a sentinel error.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// requestError wraps network failures so they can be told apart from
// HTTP-level errors when deciding whether to retry.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return "request failed: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a message in the wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completions request.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ModelInfo describes a model returned by the /models endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"`
}

type modelsResponse struct {
	Data []ModelInfo `json:"data"`
}

type apiErrorBody struct {
	Code    any    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// codeString normalizes the "code" field, which some servers send as a number.
func (b *apiErrorBody) codeString() string {
	switch v := b.Code.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int(v))
	}
	return b.Type
}

type apiErrorResponse struct {
	Error *apiErrorBody `json:"error"`
}

// toWire converts conversation messages to the request format.
func toWire(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: m.Role.String(), Content: m.Content}
	}
	return out
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens requests against an OpenAI-compatible API.
// A Client is safe for concurrent use once configured.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	maxRetries int
	limiter    *rate.Limiter

	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client for the given API key. An empty key still
// yields a client, but every request fails with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      DefaultBaseURL,
		userAgent:    DefaultUserAgent,
		maxRetries:   DefaultMaxRetries,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// WithBaseURL sets a custom API root, e.g. a local proxy or compatible server.
func (c *Client) WithBaseURL(url string) *Client {
	if url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithMaxRetries sets the number of attempts made to open a request.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c.maxRetries = maxRetries
	return c
}

// WithRateLimit limits request opens to rps per second with the given burst.
// A non-positive rps disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithUserAgent overrides the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display form of the key that reveals no part of it.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

func (c *Client) keyFingerprint() string {
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// logRequest logs method and path only. Headers carry the key and bodies
// carry the conversation.
func logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

func logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %s (%v)", resp.Status, duration.Round(time.Millisecond))
}

// readResponse reads a body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts an HTTP error response to a Go error.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
		msg := apiErr.Error.Message
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, msg)
		default:
			return &APIError{Code: apiErr.Error.codeString(), Message: msg, Status: statusCode}
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Message: strings.TrimSpace(string(body)), Status: statusCode}
	}
}

// isRetryable reports whether opening a request should be attempted again.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	var reqErr *requestError
	return errors.As(err, &reqErr)
}

// calculateBackoff returns the delay before retry number attempt (1-based).
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}

// retryDelay honours a server-provided Retry-After when it is longer than
// the computed backoff.
func retryDelay(attempt int, err error) time.Duration {
	delay := calculateBackoff(attempt)
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > delay {
		delay = rl.RetryAfter
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return delay
}

// ListModels returns the models the API key can use.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &requestError{err: err}
	}
	defer resp.Body.Close()
	logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var models modelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("parse models response: %w", err)
	}
	return models.Data, nil
}

// ListModelIDs returns the sorted model IDs the API key can use.
func (c *Client) ListModelIDs(ctx context.Context) ([]string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return ids, nil
}

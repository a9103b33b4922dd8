// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Shared startup for the chat front ends.
//
// Every front end starts the same way: load configuration, apply the
// command-line overrides, require an API key, build the client, open the
// session store, load presets and create the session. The TUI in package
// main uses OpenRuntime as well.

package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/neisii/chatgpt-cli/internal/cloud"
	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/storage"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// LoadConfig reads the configuration (from --config when given), applies the
// command-line overrides and validates the result.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(util.ExpandHome(args.ConfigPath))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	applyFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlags layers the global flags over cfg.
func applyFlags(cfg *config.Config, args Args) {
	if m := strings.TrimSpace(args.Model); m != "" {
		cfg.Chat.Model = m
	}
	if args.System != "" {
		cfg.Chat.SystemPrompt = args.System
		cfg.Chat.Preset = ""
	}
	if args.Preset != "" {
		cfg.Chat.Preset = args.Preset
	}
	if args.NoTime {
		cfg.Chat.IncludeTime = false
	}
	if args.NoPersist {
		cfg.Session.Persist = false
	}
}

// NewClient builds the API client from cfg.
func NewClient(cfg *config.Config) *cloud.Client {
	return cloud.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithMaxRetries(cfg.API.MaxRetries).
		WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst).
		WithUserAgent("gptcli/" + Version)
}

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime is the wired-up state shared by the front ends.
type Runtime struct {
	Config      *config.Config
	Client      *cloud.Client
	Session     *session.Session
	PresetsPath string
}

// RuntimeOptions adjusts OpenRuntime.
type RuntimeOptions struct {
	// Ephemeral skips the session store regardless of configuration.
	Ephemeral bool
	// Logger receives operational log lines. Defaults to the standard logger.
	Logger *log.Logger
}

// OpenRuntime performs the shared startup. It fails with ErrMissingAPIKey
// when no key is configured, and on an unknown preset.
func OpenRuntime(args Args, opts RuntimeOptions) (*Runtime, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.API.Key) == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Ephemeral {
		cfg.Session.Persist = false
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	presetsPath, presets := loadPresets()
	prompt, err := cfg.ResolveSystemPrompt(presets)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: conversation will not be saved: %v\n", err)
		store = nil
	}

	client := NewClient(cfg)
	sess, err := session.New(session.Options{
		Transport:    client,
		Lister:       client,
		Store:        store,
		Model:        cfg.Chat.Model,
		SystemPrompt: prompt,
		ResetSystem:  args.System != "" || args.Preset != "",
		Presets:      presets,
		IncludeTime:  cfg.Chat.IncludeTime,
		Logger:       logger,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &Runtime{
		Config:      cfg,
		Client:      client,
		Session:     sess,
		PresetsPath: presetsPath,
	}, nil
}

// Close ends the session and releases the store.
func (r *Runtime) Close() error {
	return r.Session.Close()
}

// loadPresets reads the presets file. Problems are reported as warnings and
// the built-in presets are used instead.
func loadPresets() (string, config.Presets) {
	path, err := config.PresetsPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return "", config.BuiltinPresets()
	}
	presets, err := config.LoadPresets(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load presets from %s: %v\n", path, err)
		return path, config.BuiltinPresets()
	}
	return path, presets
}

// =============================================================================
// LOGGING
// =============================================================================

// RedirectLog sends the standard logger to ~/.gptcli/debug.log so log lines
// do not interleave with streamed replies. GPTCLI_DEBUG=1 keeps stderr. The
// returned closer restores nothing; it only closes the file.
func RedirectLog() io.Closer {
	if debugEnabled() {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		return io.NopCloser(nil)
	}
	if err := config.EnsureConfigDir(); err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}
	path, err := config.LogPath()
	if err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}
	log.SetOutput(f)
	log.SetPrefix("gptcli ")
	return f
}

func debugEnabled() bool {
	v := strings.ToLower(os.Getenv("GPTCLI_DEBUG"))
	return v == "1" || v == "true" || v == "yes"
}

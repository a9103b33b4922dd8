// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neisii/chatgpt-cli/internal/cli"
	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/ui/styles"
)

// shutdownGrace bounds how long Run waits for a cancelled exchange to
// commit its partial reply.
const shutdownGrace = 3 * time.Second

// Run starts the full-screen chat and blocks until the user quits.
func Run(args cli.Args) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if path, err := config.LogPath(); err == nil {
		if f, err := tea.LogToFile(path, "gptcli"); err == nil {
			defer f.Close()
		}
	}

	rt, err := cli.OpenRuntime(args, cli.RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	clipPath, err := config.ClipPath()
	if err != nil {
		return err
	}

	m := New(rt.Session, Options{
		Theme:      styles.NewTheme(cfg.UI.Theme),
		ClipPath:   clipPath,
		PasteDelay: time.Duration(cfg.Chat.PasteGuardMs) * time.Millisecond,
		Markdown:   cfg.UI.Markdown,
		WordWrap:   cfg.UI.WordWrap,
	})

	opts := []tea.ProgramOption{}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)
	m.Attach(p.Send)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if rt.PresetsPath != "" {
		watcher, err := config.WatchPresets(ctx, rt.PresetsPath, func(presets config.Presets, err error) {
			p.Send(PresetsReloadedMsg{Presets: presets, Err: err})
		})
		if err != nil {
			log.Printf("chat: not watching presets: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	log.Printf("chat: session %s started with %s", rt.Session.ID(), rt.Session.Model())
	_, runErr := p.Run()
	m.CancelStream()
	// A cancelled exchange commits its partial reply before the store closes.
	if !m.WaitStream(shutdownGrace) {
		log.Printf("chat: exchange still running after %s; closing anyway", shutdownGrace)
	}
	log.Printf("chat: session %s ended after %s", rt.Session.ID(), rt.Session.Duration().Round(time.Second))

	if runErr != nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	return nil
}

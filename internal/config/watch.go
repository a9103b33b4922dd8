// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPresetDebounce is how long the presets file must stay quiet before
// it is reloaded.
const DefaultPresetDebounce = 250 * time.Millisecond

// =============================================================================
// PRESET WATCHER
// =============================================================================

// PresetWatcher reloads the presets file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself, so editors
// that save by writing a temp file and renaming it are still noticed.
type PresetWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload func(Presets, error)

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatchPresets starts watching path and calls fn with the reloaded presets
// after each burst of changes. Watching stops when ctx is done or Close is
// called. fn runs on the watcher goroutine.
func WatchPresets(ctx context.Context, path string, fn func(Presets, error)) (*PresetWatcher, error) {
	return watchPresets(ctx, path, DefaultPresetDebounce, fn)
}

func watchPresets(ctx context.Context, path string, debounce time.Duration, fn func(Presets, error)) (*PresetWatcher, error) {
	if path == "" {
		p, err := PresetsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	pw := &PresetWatcher{
		path:     path,
		watcher:  watcher,
		debounce: debounce,
		onReload: fn,
		ctx:      wctx,
		cancel:   cancel,
	}

	pw.wg.Add(2)
	go pw.processEvents()
	go pw.processPending()
	return pw, nil
}

// Path returns the watched presets file.
func (pw *PresetWatcher) Path() string { return pw.path }

func (pw *PresetWatcher) processEvents() {
	defer pw.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("preset watcher: recovered from panic: %v", r)
		}
	}()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pw.mu.Lock()
			pw.pending = time.Now()
			pw.mu.Unlock()

		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("preset watcher: %v", err)
		}
	}
}

// processPending fires one reload per burst once the file has been quiet
// for the debounce interval.
func (pw *PresetWatcher) processPending() {
	defer pw.wg.Done()

	tick := pw.debounce / 2
	if tick <= 0 || tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case now := <-ticker.C:
			pw.mu.Lock()
			due := !pw.pending.IsZero() && now.Sub(pw.pending) >= pw.debounce
			if due {
				pw.pending = time.Time{}
			}
			pw.mu.Unlock()

			if due {
				presets, err := LoadPresets(pw.path)
				if err != nil {
					log.Printf("preset watcher: reload failed: %v", err)
				} else {
					log.Printf("preset watcher: reloaded %d presets", len(presets))
				}
				if pw.onReload != nil {
					pw.onReload(presets, err)
				}
			}
		}
	}
}

// Close stops the watcher and waits for its goroutines to exit.
func (pw *PresetWatcher) Close() error {
	pw.cancel()
	err := pw.watcher.Close()
	pw.wg.Wait()
	return err
}

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPresets_MissingFileGivesBuiltins(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "presets.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"coder", "concise", "default", "translator"}, presets.Names())
}

func TestLoadPresets_MergesOverBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := "Pirate: |\n  Talk like a pirate.\ncoder: Only write Go.\nempty: \"\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	presets, err := LoadPresets(path)
	require.NoError(t, err)

	prompt, ok := presets.Prompt("pirate")
	assert.True(t, ok)
	assert.Equal(t, "Talk like a pirate.", prompt)

	prompt, ok = presets.Prompt("CODER")
	assert.True(t, ok)
	assert.Equal(t, "Only write Go.", prompt)

	_, ok = presets.Prompt("empty")
	assert.False(t, ok, "blank prompts are skipped")

	_, ok = presets.Prompt("translator")
	assert.True(t, ok, "built-ins survive the merge")
}

func TestLoadPresets_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0600))

	presets, err := LoadPresets(path)
	assert.Error(t, err)
	assert.Len(t, presets, len(BuiltinPresets()), "built-ins are still returned")
}

func TestSavePresets_WritesOnlyCustom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	presets := BuiltinPresets()
	presets["reviewer"] = "Review code harshly."

	require.NoError(t, SavePresets(path, presets))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "reviewer: Review code harshly.\n", string(data))

	loaded, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, presets, loaded)
}

func TestPresets_Lines(t *testing.T) {
	presets := Presets{"b": "second\nmore", "a": "first"}
	lines := presets.Lines(0)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")
	assert.NotContains(t, lines[1], "more")
}

func TestResolveSystemPrompt(t *testing.T) {
	presets := BuiltinPresets()

	cfg := Default()
	cfg.Chat.SystemPrompt = "custom"
	got, err := cfg.ResolveSystemPrompt(presets)
	require.NoError(t, err)
	assert.Equal(t, "custom", got)

	cfg.Chat.Preset = "concise"
	got, err = cfg.ResolveSystemPrompt(presets)
	require.NoError(t, err)
	assert.Equal(t, presets["concise"], got)

	cfg.Chat.Preset = "nope"
	got, err = cfg.ResolveSystemPrompt(presets)
	assert.True(t, errors.Is(err, ErrUnknownPreset))
	assert.Equal(t, "custom", got)
}

func TestWatchPresets_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("one: first\n"), 0600))

	reloaded := make(chan Presets, 4)
	w, err := watchPresets(context.Background(), path, 20*time.Millisecond, func(p Presets, err error) {
		if err == nil {
			reloaded <- p
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("one: first\ntwo: second\n"), 0600))

	select {
	case p := <-reloaded:
		_, ok := p.Prompt("two")
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload presets")
	}
}

func TestWatchPresets_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")

	var calls int
	w, err := watchPresets(context.Background(), path, 10*time.Millisecond, func(Presets, error) { calls++ })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("x"), 0600))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, w.Close())

	assert.Equal(t, 0, calls)
}

func TestWatchPresets_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := watchPresets(ctx, filepath.Join(t.TempDir(), "presets.yaml"), 10*time.Millisecond, nil)
	require.NoError(t, err)

	cancel()
	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after cancel")
	}
}

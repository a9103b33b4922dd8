// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// ErrUnknownPreset is returned when a preset name is not defined.
var ErrUnknownPreset = errors.New("unknown preset")

// Presets maps a preset name to its system prompt.
type Presets map[string]string

// BuiltinPresets returns the presets available without a presets file.
func BuiltinPresets() Presets {
	return Presets{
		"default":    model.DefaultSystemPrompt,
		"concise":    "You are a terse assistant. Reply in as few words as possible, with no preamble.",
		"coder":      "You are an expert software engineer. Prefer working code over prose, use fenced code blocks with a language tag, and point out edge cases.",
		"translator": "You are a translator. Translate the user's text into English, or into Korean if it is already English. Output only the translation.",
	}
}

// LoadPresets reads a YAML file of `name: prompt` pairs and merges it over
// the built-in presets. An empty path means PresetsPath(). A missing file is
// not an error.
func LoadPresets(path string) (Presets, error) {
	presets := BuiltinPresets()

	if path == "" {
		p, err := PresetsPath()
		if err != nil {
			return presets, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return presets, nil
		}
		return presets, fmt.Errorf("read presets: %w", err)
	}

	var user map[string]string
	if err := yaml.Unmarshal(data, &user); err != nil {
		return presets, fmt.Errorf("parse presets %s: %w", path, err)
	}
	for name, prompt := range user {
		name = normalizePresetName(name)
		prompt = strings.TrimSpace(prompt)
		if name == "" || prompt == "" {
			continue
		}
		presets[name] = prompt
	}
	return presets, nil
}

// SavePresets writes the presets that differ from the built-ins.
func SavePresets(path string, presets Presets) error {
	builtins := BuiltinPresets()
	custom := make(map[string]string)
	for name, prompt := range presets {
		if builtins[name] != prompt {
			custom[name] = prompt
		}
	}

	data, err := yaml.Marshal(custom)
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	return util.WriteFileAtomic(path, data, 0600)
}

// Prompt returns the system prompt of a preset. Lookup is case-insensitive.
func (p Presets) Prompt(name string) (string, bool) {
	prompt, ok := p[normalizePresetName(name)]
	return prompt, ok
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (p Presets) Clone() Presets {
	out := make(Presets, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Lines formats the presets as "name: first line of prompt", one per entry.
func (p Presets) Lines(width int) []string {
	names := p.Names()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		line := fmt.Sprintf("%-12s %s", name, util.FirstLine(p[name]))
		if width > 0 {
			line = util.TruncateWidth(line, width)
		}
		lines = append(lines, line)
	}
	return lines
}

func normalizePresetName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ResolveSystemPrompt picks the startup system prompt: a named preset when
// chat.preset is set, otherwise chat.system_prompt.
func (c *Config) ResolveSystemPrompt(presets Presets) (string, error) {
	if c.Chat.Preset != "" {
		prompt, ok := presets.Prompt(c.Chat.Preset)
		if !ok {
			return c.Chat.SystemPrompt, fmt.Errorf("%w: %s", ErrUnknownPreset, c.Chat.Preset)
		}
		return prompt, nil
	}
	if c.Chat.SystemPrompt == "" {
		return model.DefaultSystemPrompt, nil
	}
	return c.Chat.SystemPrompt, nil
}

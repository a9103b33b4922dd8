// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// ErrNothingToSave is returned when there is no reply to write.
var ErrNothingToSave = errors.New("nothing to save")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a conversation into a file format.
type Exporter interface {
	// Export renders msgs; system messages are left out.
	Export(modelName string, msgs []model.Message, at time.Time) ([]byte, error)

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// ExporterFor picks an exporter from the extension of path. Anything that
// is not .json is written as markdown.
func ExporterFor(path string) Exporter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONExporter{}
	}
	return MarkdownExporter{}
}

// conversationTurns drops system messages.
func conversationTurns(msgs []model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != model.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// DefaultTranscriptName returns "chat-<unix milliseconds>.md".
func DefaultTranscriptName(at time.Time) string {
	return fmt.Sprintf("chat-%d.md", at.UnixMilli())
}

// SaveTranscript writes the conversation to path and returns the path used.
// An empty path means DefaultTranscriptName in the working directory.
func SaveTranscript(path, modelName string, msgs []model.Message, at time.Time) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultTranscriptName(at)
	}
	path = util.ExpandHome(path)

	content, err := ExporterFor(path).Export(modelName, msgs, at)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.WriteFileAtomicDir(path, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// =============================================================================
// CLIPS
// =============================================================================

// WriteClip saves a single reply as plain text and returns the path used.
// An empty path means ~/.gptcli/clip.txt. Blank text is ErrNothingToSave.
func WriteClip(path, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNothingToSave
	}

	path = strings.TrimSpace(path)
	if path == "" {
		p, err := config.ClipPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	path = util.ExpandHome(path)

	if err := util.WriteFileAtomic(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("write clip: %w", err)
	}
	return path, nil
}

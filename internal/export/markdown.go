// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"
	"time"

	"github.com/neisii/chatgpt-cli/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes the transcript format used by /save:
//
//	# Chat Transcript (2025-01-02T03:04:05Z)
//	Model: gpt-4o-mini
//
//	**USER**: hello
//
//	**ASSISTANT**: hi
type MarkdownExporter struct{}

// Export renders the transcript. It never fails.
func (MarkdownExporter) Export(modelName string, msgs []model.Message, at time.Time) ([]byte, error) {
	return Transcript(modelName, msgs, at), nil
}

// FileExtension returns ".md".
func (MarkdownExporter) FileExtension() string { return ".md" }

// Transcript renders msgs in the markdown transcript format.
func Transcript(modelName string, msgs []model.Message, at time.Time) []byte {
	var sb strings.Builder
	sb.WriteString("# Chat Transcript (")
	sb.WriteString(at.UTC().Format(time.RFC3339))
	sb.WriteString(")\nModel: ")
	sb.WriteString(modelName)
	sb.WriteString("\n\n")

	for i, m := range conversationTurns(msgs) {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("**")
		sb.WriteString(strings.ToUpper(string(m.Role)))
		sb.WriteString("**: ")
		sb.WriteString(m.Content)
	}
	return []byte(sb.String())
}

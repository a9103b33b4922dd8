// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/neisii/chatgpt-cli/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the transcript as a JSON document.
type JSONExporter struct{}

type jsonTranscript struct {
	Model      string          `json:"model"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []model.Message `json:"messages"`
}

// Export renders the non-system messages with their IDs and timestamps.
func (JSONExporter) Export(modelName string, msgs []model.Message, at time.Time) ([]byte, error) {
	doc := jsonTranscript{
		Model:      modelName,
		ExportedAt: at.UTC(),
		Messages:   conversationTurns(msgs),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (JSONExporter) FileExtension() string { return ".json" }

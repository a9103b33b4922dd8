// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts and saved replies to disk.
//
// # Supported Formats
//
//   - Markdown: the /save transcript, "**ROLE**: content" blocks
//   - JSON: chosen when the target path ends in .json
//
// # Usage
//
//	path, err := export.SaveTranscript("", modelName, conv.Snapshot(), time.Now())
//	clip, err := export.WriteClip("", lastReply)
package export

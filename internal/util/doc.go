// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the gptcli packages.
//
// # Key Functions
//
//   - WriteFileAtomic: crash-safe file writes (temp file, fsync, rename)
//   - Truncate / TruncateWidth: rune- and cell-aware shortening for display
//   - ExpandHome: "~/" expansion for user-supplied paths
//
// # Usage
//
//	err := util.WriteFileAtomic(path, data, 0600)
//	label := util.TruncateWidth(title, 40)
package util

// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the active chat session between runs.
//
// Two backends implement Persister:
//
//   - JSONStore: a single ~/.gptcli/session.json document (default)
//   - SQLiteStore: ~/.gptcli/session.db using modernc.org/sqlite
//
// Both rewrite the whole message log on every Save. Writes are best effort;
// the caller logs failures and keeps the in-memory conversation as is.
//
// # Usage
//
//	store, err := storage.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	if store != nil {
//	    defer store.Close()
//	    msgs, err := store.Load()
//	    ...
//	}
package storage

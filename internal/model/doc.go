// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures.
//
// # Key Types
//
//   - Message: one turn (system, user or assistant) with an ID and timestamp
//   - Conversation: the ordered, mutex-guarded message log of a session
//   - Persister: write-through hook invoked after every conversation mutation
//   - ValidationError: rejected message or request input
//
// Index 0 of a Conversation is always the active system prompt. Replacing the
// prompt replaces that message, it never appends a second one.
//
// # Usage
//
//	conv := model.NewConversation("You are a helpful assistant.")
//	conv.SetPersister(store, nil)
//	if err := conv.AppendUser("hi"); err != nil { ... }
//	payload := conv.Snapshot()
package model

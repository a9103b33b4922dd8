// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat interface of gptcli.

It is a Bubble Tea program layered over session.Session: the input
machine, the conversation and the exchange coordinator all live in the
session, and this package only turns key presses into session input and
session results into screen updates.

# Key Components

## Model (model.go)

Holds the history entries, the textarea input, the history viewport, the
status line, the help overlay and the key debug box. A restored
conversation is shown as history when the model is created.

## Update Loop (update.go)

  - Enter arms a paste guard; the text is fed to the session only when no
    pasted newline arrives within the delay
  - Submit steps start an exchange in a command goroutine
  - Slash commands run through session.Apply and come back as
    CommandResultMsg
  - Esc and Ctrl+C cancel a streaming reply; Ctrl+C quits when idle

## Streaming (streaming.go)

Fragments are buffered and moved into the history at 30fps. The final
StreamDoneMsg carries the authoritative reply text, which replaces
whatever was flushed so far. Messages for an exchange other than the
current one are dropped.

## View Rendering (view.go)

Status line on top, then the history, then the input box. Finished replies
are rendered as markdown with glamour; cancelled and failed replies keep
their partial text followed by [cancelled] or [Error].
*/
package chat

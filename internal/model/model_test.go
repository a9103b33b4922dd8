// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

// recordingPersister captures every save for inspection.
type recordingPersister struct {
	saves [][]Message
	err   error
}

func (p *recordingPersister) Save(msgs []Message) error {
	p.saves = append(p.saves, msgs)
	return p.err
}

func roles(msgs []Message) []Role {
	out := make([]Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"user", NewMessage(RoleUser, "hi"), false},
		{"empty assistant", NewMessage(RoleAssistant, ""), false},
		{"unknown role", Message{Role: "tool", Content: "x"}, true},
		{"invalid utf8", Message{Role: RoleUser, Content: "\xff\xfe"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestValidateMessages(t *testing.T) {
	if err := ValidateMessages(nil); err == nil {
		t.Error("ValidateMessages(nil) should fail")
	}
	msgs := []Message{NewMessage(RoleSystem, "S"), {Role: "bogus"}}
	err := ValidateMessages(msgs)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if ve.Field != "messages[1].role" {
		t.Errorf("Field = %q, want %q", ve.Field, "messages[1].role")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_ExchangeShape(t *testing.T) {
	conv := NewConversation("S")
	if err := conv.AppendUser("hi"); err != nil {
		t.Fatal(err)
	}
	if err := conv.AppendAssistant("Hello"); err != nil {
		t.Fatal(err)
	}

	snap := conv.Snapshot()
	want := []struct {
		role    Role
		content string
	}{{RoleSystem, "S"}, {RoleUser, "hi"}, {RoleAssistant, "Hello"}}
	if len(snap) != len(want) {
		t.Fatalf("len = %d, want %d", len(snap), len(want))
	}
	for i, w := range want {
		if snap[i].Role != w.role || snap[i].Content != w.content {
			t.Errorf("msg[%d] = {%s,%q}, want {%s,%q}", i, snap[i].Role, snap[i].Content, w.role, w.content)
		}
	}
}

func TestConversation_AppendRejectsMalformed(t *testing.T) {
	conv := NewConversation("S")
	err := conv.Append(Message{Role: RoleUser, Content: "\xc3\x28"})
	if err == nil {
		t.Fatal("Append should reject invalid UTF-8")
	}
	if conv.Len() != 1 {
		t.Errorf("Len = %d after rejected append, want 1", conv.Len())
	}
}

func TestConversation_SystemMessageReplaces(t *testing.T) {
	conv := NewConversation("old")
	_ = conv.AppendUser("q")
	if err := conv.Append(NewMessage(RoleSystem, "new")); err != nil {
		t.Fatal(err)
	}
	if conv.Len() != 2 {
		t.Errorf("Len = %d, want 2", conv.Len())
	}
	if got := conv.SystemPrompt(); got != "new" {
		t.Errorf("SystemPrompt = %q, want %q", got, "new")
	}
}

func TestConversation_ResetIdempotent(t *testing.T) {
	conv := NewConversation("S")
	_ = conv.AppendUser("a")
	_ = conv.AppendAssistant("b")

	conv.Reset()
	first := conv.Snapshot()
	conv.Reset()
	second := conv.Snapshot()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("lens = %d, %d, want 1, 1", len(first), len(second))
	}
	if first[0].Role != RoleSystem || second[0].Content != "S" || first[0].Content != second[0].Content {
		t.Errorf("reset states differ: %+v vs %+v", first[0], second[0])
	}
}

func TestConversation_ResetWithPrompt(t *testing.T) {
	conv := NewConversation("S")
	_ = conv.AppendUser("a")
	conv.Reset("T")
	if conv.Len() != 1 || conv.SystemPrompt() != "T" {
		t.Errorf("after Reset(T): len=%d prompt=%q", conv.Len(), conv.SystemPrompt())
	}
}

func TestConversation_SnapshotIsCopy(t *testing.T) {
	conv := NewConversation("S")
	_ = conv.AppendUser("hi")
	snap := conv.Snapshot()
	snap[1].Content = "mutated"
	_ = conv.AppendAssistant("later")

	again := conv.Snapshot()
	if again[1].Content != "hi" {
		t.Errorf("live log changed through snapshot: %q", again[1].Content)
	}
	if len(snap) != 2 {
		t.Errorf("snapshot grew to %d", len(snap))
	}
}

func TestConversation_WriteThrough(t *testing.T) {
	p := &recordingPersister{}
	conv := NewConversation("S")
	conv.SetPersister(p, nil)

	_ = conv.AppendUser("hi")
	_ = conv.AppendAssistant("yo")
	conv.Reset()

	if len(p.saves) != 3 {
		t.Fatalf("saves = %d, want 3", len(p.saves))
	}
	if got := len(p.saves[1]); got != 3 {
		t.Errorf("second save has %d messages, want 3 (saved after mutation)", got)
	}
	if got := len(p.saves[2]); got != 1 {
		t.Errorf("save after reset has %d messages, want 1", got)
	}
}

func TestConversation_SaveErrorDoesNotRollBack(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	conv := NewConversation("S")
	conv.SetPersister(p, nil)

	if err := conv.AppendUser("hi"); err != nil {
		t.Fatalf("AppendUser returned %v, persistence errors must not surface", err)
	}
	if conv.Len() != 2 {
		t.Errorf("Len = %d, want 2", conv.Len())
	}
	if conv.LastSaveError() == nil {
		t.Error("LastSaveError should report the failed save")
	}
}

func TestConversation_LastAssistant(t *testing.T) {
	conv := NewConversation("S")
	if _, ok := conv.LastAssistant(); ok {
		t.Error("LastAssistant on fresh conversation should be false")
	}
	_ = conv.AppendUser("q")
	_ = conv.AppendAssistant("a1")
	_ = conv.AppendUser("q2")
	_ = conv.AppendAssistant("a2")
	m, ok := conv.LastAssistant()
	if !ok || m.Content != "a2" {
		t.Errorf("LastAssistant = %q, %v, want a2, true", m.Content, ok)
	}
	if got := len(conv.Transcript()); got != 4 {
		t.Errorf("Transcript len = %d, want 4", got)
	}
}

func TestConversation_Prune(t *testing.T) {
	conv := NewConversation("S")
	for i := 0; i < MaxMessages+10; i++ {
		_ = conv.AppendUser("x")
	}
	if conv.Len() != MaxMessages {
		t.Errorf("Len = %d, want %d", conv.Len(), MaxMessages)
	}
	if conv.SystemPrompt() != "S" {
		t.Error("pruning removed the system message")
	}
}

func TestRestore(t *testing.T) {
	persisted := []Message{
		{Role: RoleUser, Content: "orphan"},
		{Role: RoleSystem, Content: "late system"},
		{Role: "bogus", Content: "x"},
		{Role: RoleAssistant, Content: "reply"},
	}
	conv := Restore(persisted, "fallback")

	got := roles(conv.Snapshot())
	want := []Role{RoleSystem, RoleUser, RoleAssistant}
	if len(got) != len(want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("roles = %v, want %v", got, want)
			break
		}
	}
	if conv.SystemPrompt() != "fallback" {
		t.Errorf("SystemPrompt = %q, want fallback", conv.SystemPrompt())
	}
	for _, m := range conv.Snapshot() {
		if m.ID == "" {
			t.Error("restored message without ID")
		}
	}
}

func TestRestore_KeepsPersistedSystem(t *testing.T) {
	conv := Restore([]Message{NewMessage(RoleSystem, "saved"), NewMessage(RoleUser, "u")}, "fallback")
	if conv.SystemPrompt() != "saved" || conv.Len() != 2 {
		t.Errorf("prompt=%q len=%d", conv.SystemPrompt(), conv.Len())
	}
}

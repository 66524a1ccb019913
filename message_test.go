// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewAgentTextMessage(t *testing.T) {
	msg := NewAgentTextMessage("review complete", "ctx-1", "task-1")

	if msg.Role != RoleAgent {
		t.Errorf("role = %q, want %q", msg.Role, RoleAgent)
	}
	if msg.MessageID == "" {
		t.Error("message id is empty")
	}
	if msg.TaskID != "task-1" || msg.ContextID != "ctx-1" {
		t.Errorf("ids = (%q, %q), want (task-1, ctx-1)", msg.TaskID, msg.ContextID)
	}
	if got := GetMessageText(msg, "\n"); got != "review complete" {
		t.Errorf("text = %q, want %q", got, "review complete")
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("constructed message fails validation: %v", err)
	}
}

func TestGetTextParts(t *testing.T) {
	tests := map[string]struct {
		parts []Part
		want  []string
	}{
		"multiple text parts": {
			parts: []Part{NewTextPart("one"), NewTextPart("two")},
			want:  []string{"one", "two"},
		},
		"skips empty and foreign kinds": {
			parts: []Part{{Kind: "file", Text: "ignored"}, {Kind: PartKindText}, NewTextPart("kept")},
			want:  []string{"kept"},
		},
		"nil parts": {
			parts: nil,
			want:  nil,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, GetTextParts(tt.parts)); diff != "" {
				t.Errorf("GetTextParts() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetMessageText(t *testing.T) {
	msg := &A2AMessage{
		Role:  RoleUser,
		Parts: []Part{NewTextPart("def f():"), NewTextPart("    pass")},
	}

	if got := GetMessageText(msg, "\n"); got != "def f():\n    pass" {
		t.Errorf("GetMessageText() = %q", got)
	}
	if got := GetMessageText(nil, "\n"); got != "" {
		t.Errorf("GetMessageText(nil) = %q, want empty", got)
	}
}

func TestLastMessageByRole(t *testing.T) {
	userA := NewUserTextMessage("first code", "ctx-1")
	agentA := NewAgentTextMessage("first review", "ctx-1", "task-1")
	userB := NewUserTextMessage("second code", "ctx-1")

	history := []*A2AMessage{userA, agentA, userB}

	if got := LastMessageByRole(history, RoleUser); got != userB {
		t.Errorf("LastMessageByRole(user) = %v, want most recent user turn", got)
	}
	if got := LastMessageByRole(history, RoleAgent); got != agentA {
		t.Errorf("LastMessageByRole(agent) = %v, want the agent turn", got)
	}
	if got := LastMessageByRole(nil, RoleAgent); got != nil {
		t.Errorf("LastMessageByRole(nil) = %v, want nil", got)
	}
}

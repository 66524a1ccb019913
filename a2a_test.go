// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
)

func TestTaskStateIsTerminal(t *testing.T) {
	tests := map[string]struct {
		state TaskState
		want  bool
	}{
		"submitted":      {TaskStateSubmitted, false},
		"working":        {TaskStateWorking, false},
		"completed":      {TaskStateCompleted, true},
		"input-required": {TaskStateInputRequired, true},
		"failed":         {TaskStateFailed, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("TaskState(%q).IsTerminal() = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestPartValidate(t *testing.T) {
	tests := map[string]struct {
		part    Part
		wantErr bool
	}{
		"valid text part": {
			part:    NewTextPart("x = 1"),
			wantErr: false,
		},
		"unsupported kind": {
			part:    Part{Kind: "file", Text: "x"},
			wantErr: true,
		},
		"empty text": {
			part:    Part{Kind: PartKindText},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.part.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Part.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPartWireFormat(t *testing.T) {
	data, err := json.Marshal(NewTextPart("print(42)"))
	if err != nil {
		t.Fatalf("marshal part: %v", err)
	}

	want := `{"kind":"text","text":"print(42)"}`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("part wire format mismatch (-want +got):\n%s", diff)
	}
}

func TestA2AMessageValidate(t *testing.T) {
	tests := map[string]struct {
		message A2AMessage
		wantErr bool
	}{
		"valid user message": {
			message: A2AMessage{
				Role:      RoleUser,
				Parts:     []Part{NewTextPart("hello")},
				MessageID: "msg-1",
			},
			wantErr: false,
		},
		"valid agent message": {
			message: A2AMessage{
				Role:      RoleAgent,
				Parts:     []Part{NewTextPart("hello back")},
				MessageID: "msg-2",
			},
			wantErr: false,
		},
		"invalid role": {
			message: A2AMessage{
				Role:  Role("system"),
				Parts: []Part{NewTextPart("hi")},
			},
			wantErr: true,
		},
		"no parts": {
			message: A2AMessage{
				Role: RoleUser,
			},
			wantErr: true,
		},
		"invalid part": {
			message: A2AMessage{
				Role:  RoleUser,
				Parts: []Part{{Kind: "audio"}},
			},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.message.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("A2AMessage.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestArtifactValidate(t *testing.T) {
	tests := map[string]struct {
		artifact Artifact
		wantErr  bool
	}{
		"valid review artifact": {
			artifact: NewTextArtifact(ArtifactNameReview, "Severity: High\nExplanation: bad"),
			wantErr:  false,
		},
		"empty name": {
			artifact: Artifact{Parts: []Part{NewTextPart("x")}},
			wantErr:  true,
		},
		"no parts": {
			artifact: Artifact{Name: ArtifactNameDiff},
			wantErr:  true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.artifact.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Artifact.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskValidate(t *testing.T) {
	reply := NewAgentTextMessage("done", "ctx-1", "task-1")

	tests := map[string]struct {
		task    *Task
		wantErr bool
	}{
		"valid completed task": {
			task:    CompletedTask("task-1", "ctx-1", reply, []Artifact{NewTextArtifact(ArtifactNameCommit, "fix: x")}, nil),
			wantErr: false,
		},
		"valid input-required task": {
			task:    InputRequiredTask("task-2", "ctx-1", reply, nil),
			wantErr: false,
		},
		"missing id": {
			task:    &Task{ContextID: "ctx-1", Status: TaskStatus{State: TaskStateCompleted}},
			wantErr: true,
		},
		"missing context id": {
			task:    &Task{ID: "task-1", Status: TaskStatus{State: TaskStateCompleted}},
			wantErr: true,
		},
		"bogus state": {
			task:    &Task{ID: "task-1", ContextID: "ctx-1", Status: TaskStatus{State: TaskState("paused")}},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Task.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskConstructors(t *testing.T) {
	history := []*A2AMessage{
		NewUserTextMessage("review this", "ctx-9"),
	}
	reply := NewAgentTextMessage("looks fine", "ctx-9", "task-9")

	task := CompletedTask("task-9", "ctx-9", reply, []Artifact{NewTextArtifact(ArtifactNameReview, "ok")}, history)

	if task.Status.State != TaskStateCompleted {
		t.Errorf("CompletedTask state = %q, want %q", task.Status.State, TaskStateCompleted)
	}
	if task.Kind != TaskKind {
		t.Errorf("CompletedTask kind = %q, want %q", task.Kind, TaskKind)
	}
	if task.Status.Timestamp == "" {
		t.Error("CompletedTask timestamp is empty")
	}
	if diff := cmp.Diff(history, task.History); diff != "" {
		t.Errorf("CompletedTask history mismatch (-want +got):\n%s", diff)
	}

	failed := FailedTask("task-9", "ctx-9", reply, nil)
	if failed.Status.State != TaskStateFailed {
		t.Errorf("FailedTask state = %q, want %q", failed.Status.State, TaskStateFailed)
	}
	if len(failed.Artifacts) != 0 {
		t.Errorf("FailedTask carries %d artifacts, want 0", len(failed.Artifacts))
	}
}

func TestResolveIDs(t *testing.T) {
	t.Run("caller supplied ids are reused", func(t *testing.T) {
		taskID, contextID := ResolveIDs("task-42", "ctx-42")
		if taskID != "task-42" || contextID != "ctx-42" {
			t.Errorf("ResolveIDs() = (%q, %q), want (task-42, ctx-42)", taskID, contextID)
		}
	})

	t.Run("missing ids are minted", func(t *testing.T) {
		taskID, contextID := ResolveIDs("", "")
		if taskID == "" || contextID == "" {
			t.Error("ResolveIDs() returned empty id")
		}
		if taskID == contextID {
			t.Error("ResolveIDs() minted identical task and context ids")
		}
	})
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package sniffbot provides the A2A protocol types for the SniffBot
// code-review agent: tasks, messages, artifacts, and the JSON-RPC 2.0
// envelope used on the wire with Telex.
package sniffbot

import (
	"fmt"
	"time"
)

// Version is the agent version reported on the health endpoint.
const Version = "1.0.0"

// TaskState represents the lifecycle state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the request envelope has been parsed and
	// structurally validated.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateCompleted indicates the review finished and artifacts were produced.
	TaskStateCompleted TaskState = "completed"

	// TaskStateInputRequired indicates the agent needs more input from the
	// caller before it can produce a review.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateFailed indicates the task has failed.
	TaskStateFailed TaskState = "failed"
)

// IsTerminal reports whether the state is terminal. Every task reaches a
// terminal state within its own request/response cycle.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateInputRequired, TaskStateFailed:
		return true
	default:
		return false
	}
}

// Role represents the role of a message sender.
type Role string

// Role constants for message senders.
const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// PartKindText is the only part kind SniffBot produces and consumes.
const PartKindText = "text"

// Part represents one content part of a message or artifact.
// SniffBot is text-only; the Kind field is kept on the wire for A2A
// compatibility.
type Part struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate ensures the Part is valid.
func (p Part) Validate() error {
	if p.Kind != PartKindText {
		return fmt.Errorf("unsupported part kind: %q", p.Kind)
	}
	if p.Text == "" {
		return fmt.Errorf("text part cannot be empty")
	}
	return nil
}

// NewTextPart creates a text Part.
func NewTextPart(text string) Part {
	return Part{
		Kind: PartKindText,
		Text: text,
	}
}

// A2AMessage represents one turn in a conversation.
// A message is immutable once appended to a conversation history.
type A2AMessage struct {
	Role      Role   `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// Validate ensures the A2AMessage is valid.
func (m A2AMessage) Validate() error {
	if m.Role != RoleAgent && m.Role != RoleUser {
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if len(m.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}
	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("message part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Artifact names produced by a completed review task.
const (
	ArtifactNameReview = "review"
	ArtifactNameDiff   = "diff"
	ArtifactNameCommit = "commit"
)

// Artifact represents a named output generated by a task. Artifacts are
// produced fresh per task and never mutated after creation.
type Artifact struct {
	Name  string `json:"name"`
	Parts []Part `json:"parts"`
}

// Validate ensures the Artifact is valid.
func (a Artifact) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("artifact name cannot be empty")
	}
	if len(a.Parts) == 0 {
		return fmt.Errorf("artifact must contain at least one part")
	}
	for i, part := range a.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("artifact part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// NewTextArtifact creates an Artifact with a single text part.
func NewTextArtifact(name, text string) Artifact {
	return Artifact{
		Name:  name,
		Parts: []Part{NewTextPart(text)},
	}
}

// TaskStatus represents the current status of a task together with the
// agent's reply message for that status.
type TaskStatus struct {
	State     TaskState   `json:"state"`
	Message   *A2AMessage `json:"message,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// TaskKind is the discriminator value carried by task results on the wire.
const TaskKind = "task"

// Task represents one unit of work corresponding to a single RPC call.
// The server holds no Task beyond the request/response cycle; only its
// messages survive, folded into the conversation store.
type Task struct {
	ID        string        `json:"id"`
	ContextID string        `json:"contextId"`
	Status    TaskStatus    `json:"status"`
	Artifacts []Artifact    `json:"artifacts,omitempty"`
	History   []*A2AMessage `json:"history,omitempty"`
	Kind      string        `json:"kind"`
}

// Validate ensures the Task is valid.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if t.ContextID == "" {
		return fmt.Errorf("task context ID cannot be empty")
	}
	switch t.Status.State {
	case TaskStateSubmitted, TaskStateWorking, TaskStateCompleted, TaskStateInputRequired, TaskStateFailed:
	default:
		return fmt.Errorf("invalid task state: %q", t.Status.State)
	}
	for i, artifact := range t.Artifacts {
		if err := artifact.Validate(); err != nil {
			return fmt.Errorf("artifact at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// statusTimestamp returns the current UTC time formatted for status timestamps.
func statusTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

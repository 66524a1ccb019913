// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"github.com/google/uuid"
)

// ResolveIDs returns the task and context identifiers for a request,
// reusing the caller-supplied values when present and minting UUIDs
// otherwise. Caller-supplied task IDs support client-side idempotent
// retries by id.
func ResolveIDs(taskID, contextID string) (string, string) {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return taskID, contextID
}

// CompletedTask creates a Task in the "completed" state carrying the reply
// message, the produced artifacts, and a history snapshot.
func CompletedTask(taskID, contextID string, reply *A2AMessage, artifacts []Artifact, history []*A2AMessage) *Task {
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateCompleted,
			Message:   reply,
			Timestamp: statusTimestamp(),
		},
		Artifacts: artifacts,
		History:   history,
		Kind:      TaskKind,
	}
}

// InputRequiredTask creates a Task in the "input-required" state: the agent
// could not act on the request and is prompting the caller. Such tasks carry
// no artifacts.
func InputRequiredTask(taskID, contextID string, reply *A2AMessage, history []*A2AMessage) *Task {
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateInputRequired,
			Message:   reply,
			Timestamp: statusTimestamp(),
		},
		History: history,
		Kind:    TaskKind,
	}
}

// FailedTask creates a Task in the "failed" state.
func FailedTask(taskID, contextID string, reply *A2AMessage, history []*A2AMessage) *Task {
	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateFailed,
			Message:   reply,
			Timestamp: statusTimestamp(),
		},
		History: history,
		Kind:    TaskKind,
	}
}

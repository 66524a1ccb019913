// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation persists per-context message history.
// A conversation is the ordered sequence of user and agent turns sharing a
// contextId; the agent reads it back to resolve follow-ups like "fix the
// last code I sent".
package conversation

import (
	"context"
	"fmt"

	"github.com/telexintegrations/sniffbot"
)

// Store defines the interface for conversation persistence operations.
// This interface abstracts the storage mechanism to allow different
// implementations (in-memory, database) behind a consistent API.
type Store interface {
	// History returns the ordered turns recorded for a context, oldest
	// first. An unknown context yields an empty history, not an error.
	History(ctx context.Context, contextID string) ([]*sniffbot.A2AMessage, error)

	// Append records turns at the end of a context's history, preserving
	// the argument order. Appends for the same context are serialized, so
	// a user turn and the agent reply recorded together stay adjacent.
	Append(ctx context.Context, contextID string, messages ...*sniffbot.A2AMessage) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}

// StoreError wraps a storage backend failure with the operation and
// context it occurred in.
type StoreError struct {
	Op        string
	ContextID string
	Err       error
}

// NewStoreError creates a StoreError.
func NewStoreError(op, contextID string, err error) StoreError {
	return StoreError{Op: op, ContextID: contextID, Err: err}
}

// Error returns the error message.
func (e StoreError) Error() string {
	if e.ContextID != "" {
		return fmt.Sprintf("conversation store %s failed for context %s: %v", e.Op, e.ContextID, e.Err)
	}
	return fmt.Sprintf("conversation store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e StoreError) Unwrap() error {
	return e.Err
}

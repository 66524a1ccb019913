// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"strings"

	"github.com/google/uuid"
)

// NewAgentTextMessage creates an agent message containing a single text part,
// with a freshly minted message ID.
func NewAgentTextMessage(text, contextID, taskID string) *A2AMessage {
	return &A2AMessage{
		Role:      RoleAgent,
		Parts:     []Part{NewTextPart(text)},
		MessageID: uuid.NewString(),
		TaskID:    taskID,
		ContextID: contextID,
	}
}

// NewUserTextMessage creates a user message containing a single text part,
// with a freshly minted message ID.
func NewUserTextMessage(text, contextID string) *A2AMessage {
	return &A2AMessage{
		Role:      RoleUser,
		Parts:     []Part{NewTextPart(text)},
		MessageID: uuid.NewString(),
		ContextID: contextID,
	}
}

// GetTextParts extracts the text content from all text parts.
func GetTextParts(parts []Part) []string {
	var texts []string
	for _, part := range parts {
		if part.Kind == PartKindText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return texts
}

// GetMessageText joins all text content of a message's parts with the given
// delimiter. Returns an empty string for a nil message or one with no text
// parts.
func GetMessageText(m *A2AMessage, delimiter string) string {
	if m == nil {
		return ""
	}
	return strings.Join(GetTextParts(m.Parts), delimiter)
}

// LastMessageByRole returns the most recent message with the given role,
// or nil if the history contains none.
func LastMessageByRole(history []*A2AMessage, role Role) *A2AMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] != nil && history[i].Role == role {
			return history[i]
		}
	}
	return nil
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler publishes the weekly "Smell of the Week" broadcast:
// a recurring timer that picks a code smell from the embedded catalog,
// formats it, and posts it to the configured Telex webhook. It runs on its
// own timeline, independent of inbound requests, and is exempt from rate
// limiting.
package scheduler

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

//go:embed smells.json
var smellsJSON []byte

// Smell is one entry of the code-smell catalog.
type Smell struct {
	Title         string `json:"title"`
	Lang          string `json:"lang"`
	Tag           string `json:"tag"`
	Bad           string `json:"bad"`
	Good          string `json:"good"`
	Explanation   string `json:"explanation"`
	CommitMessage string `json:"commit_message"`
}

// tagEmoji maps catalog tags to their display emoji.
var tagEmoji = map[string]string{
	"security":        "🔒",
	"performance":     "🚀",
	"readability":     "💡",
	"maintainability": "🔧",
	"correctness":     "🔍",
	"style":           "🎨",
	"portability":     "🌍",
	"reliability":     "🛡️",
	"modern-js":       "♻️",
	"general":         "❓",
}

// LoadSmells decodes the embedded catalog.
func LoadSmells() ([]Smell, error) {
	var smells []Smell
	if err := json.Unmarshal(smellsJSON, &smells); err != nil {
		return nil, fmt.Errorf("failed to decode smell catalog: %w", err)
	}
	if len(smells) == 0 {
		return nil, fmt.Errorf("smell catalog is empty")
	}
	return smells, nil
}

// BuildSmellMessage renders a catalog entry as the broadcast markdown.
func BuildSmellMessage(smell Smell) string {
	tag := smell.Tag
	if tag == "" {
		tag = "general"
	}
	tagDisplay := ""
	if tag != "general" {
		emoji, ok := tagEmoji[tag]
		if !ok {
			emoji = tagEmoji["general"]
		}
		tagDisplay = fmt.Sprintf(" %s **#%s**", emoji, tag)
	}

	return fmt.Sprintf("**Smell of the Week**\n"+
		"**%s** (`%s`)%s\n"+
		"\n"+
		"**Bad**\n"+
		"```%s\n"+
		"%s\n"+
		"```\n"+
		"\n"+
		"**Good**\n"+
		"```%s\n"+
		"%s\n"+
		"```\n"+
		"\n"+
		"> %s\n"+
		"\n"+
		"**Commit Message**\n"+
		"`%s`",
		smell.Title, smell.Lang, tagDisplay,
		smell.Lang, strings.TrimRight(smell.Bad, "\n"),
		smell.Lang, strings.TrimRight(smell.Good, "\n"),
		smell.Explanation,
		smell.CommitMessage,
	)
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package review assembles the agent's reply message and named artifacts
// from an analysis result. Build is a pure function of its inputs: the
// reply layout is part of the external contract with Telex.im and must not
// drift between releases.
package review

import (
	"fmt"
	"strings"

	"github.com/telexintegrations/sniffbot"
)

// reviewTitle is the heading of a first-pass review reply.
const reviewTitle = "SniffBot Code Review"

// reReviewTitle is the heading when re-analyzing previously sent code.
const reReviewTitle = "SniffBot Code Re-Review (Fix Last)"

// maxCommitSubject caps derived commit subjects at the conventional limit.
const maxCommitSubject = 72

// Build produces the canonical reply text and the named artifacts for an
// analysis result.
//
// With fixed code present the reply carries severity, explanation, the
// fenced diff, and the commit line, and the artifacts are review, diff, and
// commit. Without fixed code the diff and commit artifacts are omitted and
// the reply states only the finding.
func Build(result sniffbot.AnalysisResult, originalCode string) (string, []sniffbot.Artifact) {
	return build(reviewTitle, result, originalCode)
}

// BuildReReview is Build with the re-review heading, used when the caller
// asked to fix the last code they sent.
func BuildReReview(result sniffbot.AnalysisResult, originalCode string) (string, []sniffbot.Artifact) {
	return build(reReviewTitle, result, originalCode)
}

func build(title string, result sniffbot.AnalysisResult, originalCode string) (string, []sniffbot.Artifact) {
	reviewText := fmt.Sprintf("Severity: %s\nExplanation: %s", result.Severity, result.Explanation)

	if result.FixedCode == "" {
		reply := fmt.Sprintf("**%s** %s **%s**\n\n> %s",
			title, result.Severity.Emoji(), result.Severity, result.Explanation)
		return reply, []sniffbot.Artifact{
			sniffbot.NewTextArtifact(sniffbot.ArtifactNameReview, reviewText),
		}
	}

	diffBody := UnifiedDiff(originalCode, result.FixedCode)
	commit := result.CommitMessage
	if commit == "" {
		commit = deriveCommit(result.Explanation)
	}

	reply := fmt.Sprintf("**%s** %s **%s**\n\n> %s\n\n**Fixed Code (Diff)**\n```diff\n%s\n```\n\n**Commit Message**\n`%s`",
		title, result.Severity.Emoji(), result.Severity, result.Explanation, diffBody, commit)

	artifacts := []sniffbot.Artifact{
		sniffbot.NewTextArtifact(sniffbot.ArtifactNameReview, reviewText),
		sniffbot.NewTextArtifact(sniffbot.ArtifactNameDiff, FencedDiff(diffBody)),
		sniffbot.NewTextArtifact(sniffbot.ArtifactNameCommit, commit),
	}
	return reply, artifacts
}

// deriveCommit turns the analysis explanation into a conventional-commit
// subject when the backend supplied none.
func deriveCommit(explanation string) string {
	subject := strings.TrimSpace(explanation)
	if idx := strings.IndexAny(subject, ".\n"); idx > 0 {
		subject = subject[:idx]
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		subject = "address review finding"
	}
	commit := "fix: " + subject
	if len(commit) > maxCommitSubject {
		commit = strings.TrimRight(commit[:maxCommitSubject-3], " ") + "..."
	}
	return commit
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NoChangesMarker is the diff body emitted when original and fixed code
// are identical.
const NoChangesMarker = "# No changes detected"

// diffContextLines is the number of unchanged context lines around each hunk.
const diffContextLines = 3

// UnifiedDiff renders the unified diff between original and fixed source,
// without fencing. Identical inputs yield [NoChangesMarker]. Never fails:
// a diff that cannot be rendered degrades to an explanatory marker line.
func UnifiedDiff(original, fixed string) string {
	diff := difflib.UnifiedDiff{
		A:        splitLines(original),
		B:        splitLines(fixed),
		FromFile: "original",
		ToFile:   "fixed",
		Context:  diffContextLines,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "# Error generating diff"
	}
	if text == "" {
		return NoChangesMarker
	}
	return strings.TrimRight(text, "\n")
}

// FencedDiff wraps a diff body in a markdown ```diff fence, as carried by
// the diff artifact.
func FencedDiff(body string) string {
	return "```diff\n" + body + "\n```"
}

// splitLines splits source into lines keeping terminators, normalizing a
// missing final newline so the diff never flags one spuriously.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	lines := strings.SplitAfter(s, "\n")
	return lines[:len(lines)-1]
}

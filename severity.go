// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import "fmt"

// Severity is the rating assigned to a finding by the analysis backend.
// The set is fixed and ordered; it drives both display and reply formatting.
type Severity string

// Severity levels, ordered from least to most serious.
const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// severityRanks orders severities for comparison.
var severityRanks = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Validate ensures the Severity is one of the fixed set.
func (s Severity) Validate() error {
	if _, ok := severityRanks[s]; !ok {
		return fmt.Errorf("invalid severity: %q", s)
	}
	return nil
}

// Rank returns the position of the severity in the ordered set, with
// SeverityLow ranked lowest. Unknown severities rank below SeverityLow.
func (s Severity) Rank() int {
	rank, ok := severityRanks[s]
	if !ok {
		return -1
	}
	return rank
}

// Emoji returns the visual marker used in reply messages.
func (s Severity) Emoji() string {
	switch s {
	case SeverityLow:
		return "🟢"
	case SeverityMedium:
		return "🟡"
	case SeverityHigh:
		return "🔴"
	case SeverityCritical:
		return "🚨"
	default:
		return "🔵"
	}
}

// AnalysisResult is the structured verdict returned by the analysis backend
// for one piece of code.
type AnalysisResult struct {
	// Severity rates how serious the finding is.
	Severity Severity `json:"severity"`

	// Explanation is a short prose description of the finding.
	Explanation string `json:"explanation"`

	// FixedCode is the corrected source text. Empty when the backend has no
	// fix to offer; the diff and commit artifacts are omitted in that case.
	FixedCode string `json:"fixed_code,omitempty"`

	// CommitMessage is a conventional-commit-style one-liner. Optional; when
	// empty one is derived from the explanation.
	CommitMessage string `json:"commit_message,omitempty"`
}

// Validate ensures the AnalysisResult is valid.
func (r AnalysisResult) Validate() error {
	if err := r.Severity.Validate(); err != nil {
		return err
	}
	if r.Explanation == "" {
		return fmt.Errorf("analysis explanation cannot be empty")
	}
	return nil
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis invokes the code-analysis backend that judges snippets
// and proposes fixes.
package analysis

import (
	"context"

	"github.com/telexintegrations/sniffbot"
)

// Analyzer judges a code snippet and proposes a fix.
type Analyzer interface {
	// Analyze reviews code and returns the structured verdict. The
	// language hint may be empty. Failures surface as
	// [sniffbot.AnalysisTimeoutError] or [sniffbot.AnalysisUpstreamError].
	Analyze(ctx context.Context, code, language string) (sniffbot.AnalysisResult, error)
}

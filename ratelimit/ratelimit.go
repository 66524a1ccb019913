// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides per-caller request rate limiting.
package ratelimit

import "time"

// Limiter decides whether a caller may proceed with a request.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within
	// quota. When the attempt is denied, retryAfter is how long until the
	// caller's oldest recorded attempt ages out of the window; denied
	// attempts are not recorded.
	Allow(key string) (allowed bool, retryAfter time.Duration)

	// Close releases any background resources held by the limiter.
	Close()
}

// Noop is a Limiter that admits every request. Useful in tests and when
// rate limiting is disabled.
type Noop struct{}

// Allow always admits the request.
func (Noop) Allow(string) (bool, time.Duration) {
	return true, 0
}

// Close is a no-op.
func (Noop) Close() {}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"fmt"
	"time"
)

// ProtocolError is an error that maps onto a JSON-RPC error object.
type ProtocolError interface {
	error
	// Code returns the JSON-RPC error code.
	Code() int
	// RPCError returns the wire-level error object for the fault.
	RPCError() *JSONRPCError
}

// RateLimitedError reports that a caller exceeded the per-minute quota.
type RateLimitedError struct {
	// Identifier is the rate-limit key that was throttled.
	Identifier string
	// Limit is the configured requests-per-window quota.
	Limit int
	// RetryAfter is how long until the oldest window entry ages out.
	RetryAfter time.Duration
}

// Error returns the error message.
func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s exceeded %d requests per minute", e.Identifier, e.Limit)
}

// Code returns the JSON-RPC error code.
func (e RateLimitedError) Code() int {
	return RateLimitedErrorCode
}

// RPCError returns the wire-level error object for the fault.
func (e RateLimitedError) RPCError() *JSONRPCError {
	return &JSONRPCError{
		Code:    RateLimitedErrorCode,
		Message: fmt.Sprintf("Rate limited: %d requests per minute per user", e.Limit),
		Data: map[string]any{
			"retry_after_seconds": int(e.RetryAfter.Seconds()) + 1,
		},
	}
}

// AnalysisTimeoutError reports that the analysis backend missed its deadline.
type AnalysisTimeoutError struct {
	// Timeout is the deadline that was exceeded.
	Timeout time.Duration
}

// Error returns the error message.
func (e AnalysisTimeoutError) Error() string {
	return fmt.Sprintf("analysis timed out after %s", e.Timeout)
}

// Code returns the JSON-RPC error code.
func (e AnalysisTimeoutError) Code() int {
	return AnalysisTimeoutErrorCode
}

// RPCError returns the wire-level error object for the fault.
func (e AnalysisTimeoutError) RPCError() *JSONRPCError {
	return &JSONRPCError{
		Code:    AnalysisTimeoutErrorCode,
		Message: "Analysis timed out",
	}
}

// AnalysisUpstreamError reports a failed or malformed answer from the
// analysis backend.
type AnalysisUpstreamError struct {
	// Status is the upstream HTTP status, zero when the failure was not
	// an HTTP error (e.g. a malformed body).
	Status int
	// Err is the underlying cause.
	Err error
}

// Error returns the error message.
func (e AnalysisUpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("analysis upstream error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("analysis upstream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e AnalysisUpstreamError) Unwrap() error {
	return e.Err
}

// Code returns the JSON-RPC error code.
func (e AnalysisUpstreamError) Code() int {
	return AnalysisUpstreamErrorCode
}

// RPCError returns the wire-level error object for the fault.
func (e AnalysisUpstreamError) RPCError() *JSONRPCError {
	return &JSONRPCError{
		Code:    AnalysisUpstreamErrorCode,
		Message: "Analysis backend error",
	}
}

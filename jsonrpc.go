// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package sniffbot

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion is the only protocol version accepted on the wire.
const JSONRPCVersion = "2.0"

// RPC method names accepted by the agent.
const (
	// MethodMessageSend submits a single new message for review.
	MethodMessageSend = "message/send"
	// MethodExecute submits an ordered batch of prior messages, used for
	// retries, scheduled jobs, and background tasks.
	MethodExecute = "execute"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request envelope.
// Params stays raw until the method has been resolved.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Validate ensures the envelope has the required JSON-RPC 2.0 shape.
// Method resolution is a separate concern; see [KnownMethod].
func (r JSONRPCRequest) Validate() error {
	if r.JSONRPC != JSONRPCVersion {
		return fmt.Errorf("jsonrpc version must be %q, got %q", JSONRPCVersion, r.JSONRPC)
	}
	if r.ID == nil {
		return fmt.Errorf("request id cannot be null")
	}
	if r.Method == "" {
		return fmt.Errorf("request method cannot be empty")
	}
	return nil
}

// KnownMethod reports whether the method is one the agent serves.
func KnownMethod(method string) bool {
	return method == MethodMessageSend || method == MethodExecute
}

// MessageConfiguration carries per-message delivery options.
type MessageConfiguration struct {
	Blocking bool `json:"blocking"`
}

// MessageSendParams are the params for the message/send method: a single
// new turn, optionally carrying the context it belongs to.
type MessageSendParams struct {
	Message       *A2AMessage           `json:"message"`
	Configuration *MessageConfiguration `json:"configuration,omitempty"`
}

// Validate ensures the MessageSendParams are valid.
func (p MessageSendParams) Validate() error {
	if p.Message == nil {
		return fmt.Errorf("params must contain a message")
	}
	return p.Message.Validate()
}

// ExecuteParams are the params for the execute method: an ordered sequence
// of prior turns plus optional task/context identifiers.
type ExecuteParams struct {
	Messages      []*A2AMessage         `json:"messages"`
	ContextID     string                `json:"contextId,omitempty"`
	TaskID        string                `json:"taskId,omitempty"`
	Message       *A2AMessage           `json:"message,omitempty"`
	Configuration *MessageConfiguration `json:"configuration,omitempty"`
}

// Validate ensures the ExecuteParams carry at least one turn.
func (p ExecuteParams) Validate() error {
	if len(p.Messages) == 0 && p.Message == nil {
		return fmt.Errorf("params must contain a message or a messages sequence")
	}
	for i, msg := range p.Messages {
		if msg == nil {
			return fmt.Errorf("message at index %d cannot be nil", i)
		}
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message at index %d is invalid: %w", i, err)
		}
	}
	if p.Message != nil {
		return p.Message.Validate()
	}
	return nil
}

// Turns returns the ordered turn sequence the params describe: the messages
// batch followed by the single message, whichever are present.
func (p ExecuteParams) Turns() []*A2AMessage {
	turns := make([]*A2AMessage, 0, len(p.Messages)+1)
	turns = append(turns, p.Messages...)
	if p.Message != nil {
		turns = append(turns, p.Message)
	}
	return turns
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response envelope.
// Result and Error are mutually exclusive.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  *Task         `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// NewResultResponse creates a success response carrying a task result.
func NewResultResponse(id any, task *Task) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  task,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id any, rpcErr *JSONRPCError) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}

// Standard JSON-RPC 2.0 error codes.
const (
	// JSONParseErrorCode indicates an unparseable JSON payload.
	JSONParseErrorCode = -32700
	// InvalidRequestErrorCode indicates an envelope validation error.
	InvalidRequestErrorCode = -32600
	// MethodNotFoundErrorCode indicates the method does not exist.
	MethodNotFoundErrorCode = -32601
	// InvalidParamsErrorCode indicates invalid method parameters.
	InvalidParamsErrorCode = -32602
	// InternalErrorCode indicates an internal server error.
	InternalErrorCode = -32603
)

// SniffBot specific error codes, in the server-defined range.
const (
	// RateLimitedErrorCode indicates the caller exceeded the per-minute quota.
	RateLimitedErrorCode = -32000
	// AnalysisTimeoutErrorCode indicates the analysis backend did not answer
	// within the configured deadline.
	AnalysisTimeoutErrorCode = -32010
	// AnalysisUpstreamErrorCode indicates the analysis backend answered with
	// an error or a malformed body.
	AnalysisUpstreamErrorCode = -32011
)

// NewJSONParseError creates the error object for an unparseable payload.
func NewJSONParseError() *JSONRPCError {
	return &JSONRPCError{
		Code:    JSONParseErrorCode,
		Message: "Parse error",
	}
}

// NewInvalidRequestError creates the error object for a bad envelope.
func NewInvalidRequestError() *JSONRPCError {
	return &JSONRPCError{
		Code:    InvalidRequestErrorCode,
		Message: "Invalid Request",
	}
}

// NewMethodNotFoundError creates the error object for an unknown method.
func NewMethodNotFoundError() *JSONRPCError {
	return &JSONRPCError{
		Code:    MethodNotFoundErrorCode,
		Message: "Method not found",
	}
}

// NewInvalidParamsError creates the error object for invalid params.
// The detail is carried in the data field, never in the message.
func NewInvalidParamsError(detail string) *JSONRPCError {
	rpcErr := &JSONRPCError{
		Code:    InvalidParamsErrorCode,
		Message: "Invalid params",
	}
	if detail != "" {
		rpcErr.Data = map[string]any{"details": detail}
	}
	return rpcErr
}

// NewInternalError creates the generic error object for unexpected faults.
// Full detail is logged server-side only.
func NewInternalError() *JSONRPCError {
	return &JSONRPCError{
		Code:    InternalErrorCode,
		Message: "Internal error",
	}
}

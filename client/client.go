// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package client provides a typed HTTP client for the SniffBot JSON-RPC
// API with transparent retries on transient failures.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/telexintegrations/sniffbot"
)

// RPCError is a JSON-RPC error object surfaced by the agent.
type RPCError struct {
	Code    int
	Message string
	Status  int // HTTP status the error arrived with.
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s (http %d)", e.Code, e.Message, e.Status)
}

// IsTransient reports whether err is worth retrying: network failures and
// 5xx responses. Rate limiting and validation errors are not transient.
func IsTransient(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Status >= 500
	}
	return true
}

// Client talks to a SniffBot agent endpoint.
type Client struct {
	baseURL    string
	endpoint   string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// Option represents an option for configuring the [Client].
type Option func(*Client)

// WithEndpoint sets the JSON-RPC endpoint path.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets a custom [*http.Client].
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(config RetryConfig) Option {
	return func(c *Client) {
		c.retry = config
	}
}

// WithLogger sets the [*slog.Logger] for the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the agent at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		endpoint:   "/a2a/sniff",
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendText submits a single user turn and returns the resulting task.
func (c *Client) SendText(ctx context.Context, text, contextID string) (*sniffbot.Task, error) {
	return c.SendMessage(ctx, sniffbot.NewUserTextMessage(text, contextID))
}

// SendMessage submits a message/send call.
func (c *Client) SendMessage(ctx context.Context, msg *sniffbot.A2AMessage) (*sniffbot.Task, error) {
	if msg == nil {
		return nil, fmt.Errorf("message is required")
	}
	return c.call(ctx, sniffbot.MethodMessageSend, sniffbot.MessageSendParams{Message: msg})
}

// Execute submits an execute call carrying a turn sequence.
func (c *Client) Execute(ctx context.Context, params sniffbot.ExecuteParams) (*sniffbot.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return c.call(ctx, sniffbot.MethodExecute, params)
}

// call runs one JSON-RPC exchange under the retry policy.
func (c *Client) call(ctx context.Context, method string, params any) (*sniffbot.Task, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	envelope := sniffbot.JSONRPCRequest{
		JSONRPC: sniffbot.JSONRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  rawParams,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.logger.DebugContext(ctx, "rpc call",
		slog.String("method", method),
		slog.Any("rpc_id", envelope.ID),
	)

	var task *sniffbot.Task
	err = withRetry(ctx, c.retry, method, func(ctx context.Context) error {
		var err error
		task, err = c.doOnce(ctx, body)
		return err
	})
	return task, err
}

func (c *Client) doOnce(ctx context.Context, body []byte) (*sniffbot.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp sniffbot.JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response (http %d): %w", resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return nil, &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Status:  resp.StatusCode,
		}
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("response carries neither result nor error (http %d)", resp.StatusCode)
	}
	return rpcResp.Result, nil
}

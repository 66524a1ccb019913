// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/telexintegrations/sniffbot"
)

// BroadcastContextID groups every weekly broadcast under one conversation.
const BroadcastContextID = "weekly-smell-context"

// DefaultPublishTimeout bounds a single webhook delivery attempt.
const DefaultPublishTimeout = 15 * time.Second

// Publisher delivers a broadcast message to its destination.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// WebhookPublisher posts broadcasts to a Telex webhook as JSON-RPC
// execute calls, authenticated with a signed bearer token.
type WebhookPublisher struct {
	url        string
	signer     *Signer
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// WebhookOption represents an option for configuring the [WebhookPublisher].
type WebhookOption func(*WebhookPublisher)

// WithWebhookHTTPClient sets a custom [*http.Client] for deliveries.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithWebhookTimeout bounds a single delivery attempt.
func WithWebhookTimeout(timeout time.Duration) WebhookOption {
	return func(p *WebhookPublisher) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithWebhookLogger sets the [*slog.Logger] for the [WebhookPublisher].
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(p *WebhookPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewWebhookPublisher creates a publisher for the given webhook URL. The
// signer may be nil, in which case requests go out unauthenticated.
func NewWebhookPublisher(url string, signer *Signer, opts ...WebhookOption) (*WebhookPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	p := &WebhookPublisher{
		url:        url,
		signer:     signer,
		httpClient: http.DefaultClient,
		timeout:    DefaultPublishTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish posts the text as a non-blocking execute call. The broadcast is
// an agent-authored turn on the shared weekly context with a freshly
// minted task ID.
func (p *WebhookPublisher) Publish(ctx context.Context, text string) error {
	taskID := "smell-" + uuid.NewString()

	params := sniffbot.ExecuteParams{
		Message:       sniffbot.NewAgentTextMessage(text, BroadcastContextID, taskID),
		ContextID:     BroadcastContextID,
		TaskID:        taskID,
		Configuration: &sniffbot.MessageConfiguration{Blocking: false},
	}
	rawParams, err := sonic.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	envelope := sniffbot.JSONRPCRequest{
		JSONRPC: sniffbot.JSONRPCVersion,
		ID:      taskID,
		Method:  sniffbot.MethodExecute,
		Params:  rawParams,
	}
	body, err := sonic.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.signer != nil {
		token, err := p.signer.Sign(time.Now())
		if err != nil {
			return fmt.Errorf("failed to sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, snippet)
	}

	p.logger.InfoContext(ctx, "broadcast delivered",
		slog.String("task_id", taskID),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}

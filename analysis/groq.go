// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/telexintegrations/sniffbot"
)

// DefaultModel is the Groq model used when none is configured.
const DefaultModel = "llama-3.1-8b-instant"

// DefaultTimeout bounds one backend round trip.
const DefaultTimeout = 20 * time.Second

// DefaultMaxRetries is how many attempts are made against retryable
// backend failures.
const DefaultMaxRetries = 3

// defaultEndpoint is the Groq OpenAI-compatible chat completions endpoint.
const defaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// initialRetryDelay seeds the exponential backoff between attempts.
const initialRetryDelay = time.Second

// Groq is an Analyzer backed by the Groq chat completions API. The model is
// prompted to answer in strict JSON; answers wrapped in markdown fences are
// unwrapped before decoding.
type Groq struct {
	apiKey     string
	model      string
	endpoint   string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Analyzer = (*Groq)(nil)

// GroqOption configures a Groq analyzer.
type GroqOption func(*Groq)

// WithModel sets the model name.
func WithModel(model string) GroqOption {
	return func(g *Groq) {
		if model != "" {
			g.model = model
		}
	}
}

// WithEndpoint overrides the chat completions URL. Used by tests.
func WithEndpoint(endpoint string) GroqOption {
	return func(g *Groq) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// WithTimeout bounds one backend round trip.
func WithTimeout(timeout time.Duration) GroqOption {
	return func(g *Groq) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithMaxRetries sets how many attempts are made against retryable
// failures (HTTP 429 and 5xx).
func WithMaxRetries(n int) GroqOption {
	return func(g *Groq) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(client *http.Client) GroqOption {
	return func(g *Groq) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GroqOption {
	return func(g *Groq) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGroq creates a Groq analyzer.
func NewGroq(apiKey string, opts ...GroqOption) (*Groq, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}
	g := &Groq{
		apiKey:     apiKey,
		model:      DefaultModel,
		endpoint:   defaultEndpoint,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: initialRetryDelay,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model returns the configured model name.
func (g *Groq) Model() string {
	return g.model
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze reviews code and returns the structured verdict, retrying
// transient backend failures with exponential backoff and jitter.
func (g *Groq) Analyze(ctx context.Context, code, language string) (sniffbot.AnalysisResult, error) {
	delay := g.retryDelay
	var lastErr error

	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return sniffbot.AnalysisResult{}, sniffbot.AnalysisTimeoutError{Timeout: g.timeout}
		}

		result, err := g.analyzeOnce(ctx, code, language)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return sniffbot.AnalysisResult{}, err
		}
		if attempt == g.maxRetries-1 {
			break
		}

		jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
		wait := delay + jitter
		g.logger.WarnContext(ctx, "analysis attempt failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", g.maxRetries),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return sniffbot.AnalysisResult{}, sniffbot.AnalysisTimeoutError{Timeout: g.timeout}
		}
		delay *= 2
	}

	return sniffbot.AnalysisResult{}, lastErr
}

func (g *Groq) analyzeOnce(ctx context.Context, code, language string) (sniffbot.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(code, language)}},
		Model:       g.model,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return sniffbot.AnalysisResult{}, sniffbot.AnalysisTimeoutError{Timeout: g.timeout}
		}
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(chat.Choices) == 0 {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: fmt.Errorf("response carries no choices")}
	}

	var result sniffbot.AnalysisResult
	verdict := ExtractJSON(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(verdict), &result); err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: fmt.Errorf("decode verdict: %w", err)}
	}
	if err := result.Validate(); err != nil {
		return sniffbot.AnalysisResult{}, sniffbot.AnalysisUpstreamError{Err: fmt.Errorf("invalid verdict: %w", err)}
	}
	return result, nil
}

// retryable reports whether a failed attempt is worth repeating: rate
// limiting and server-side faults are, timeouts and malformed answers
// are not.
func retryable(err error) bool {
	var upstream sniffbot.AnalysisUpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status == http.StatusTooManyRequests || upstream.Status >= 500
	}
	return false
}

func buildPrompt(code, language string) string {
	if language == "" {
		language = "code"
	}
	return fmt.Sprintf(`You are a senior code reviewer. Analyze this %s:

`+"```"+`
%s
`+"```"+`

Respond **only** in valid JSON:
{
  "severity": "Low|Medium|High|Critical",
  "explanation": "1 short sentence",
  "fixed_code": "corrected code",
  "commit_message": "Conventional Commit style"
}`, language, code)
}

// ExtractJSON unwraps a model answer that arrived inside a markdown fence.
// Raw JSON passes through unchanged.
func ExtractJSON(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		if body, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		if body, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(text)
}

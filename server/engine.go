// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the SniffBot task engine and its HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/telexintegrations/sniffbot"
	"github.com/telexintegrations/sniffbot/analysis"
	"github.com/telexintegrations/sniffbot/auth"
	"github.com/telexintegrations/sniffbot/conversation"
	"github.com/telexintegrations/sniffbot/extract"
	"github.com/telexintegrations/sniffbot/ratelimit"
	"github.com/telexintegrations/sniffbot/review"
)

// Chat triggers recognized in user messages.
const (
	triggerSniff   = "@sniffbot sniff this"
	triggerFixLast = "@sniffbot fix last"
	triggerMention = "@sniffbot"
)

// followUpLookback is how many trailing turns are scanned when deciding
// whether a gratitude message follows a delivered review.
const followUpLookback = 5

// Engine drives one task from validated request to terminal state:
// rate check, intent resolution, analysis, artifact assembly, and
// conversation bookkeeping.
type Engine struct {
	store     conversation.Store
	limiter   ratelimit.Limiter
	analyzer  analysis.Analyzer
	rateLimit int
	logger    *slog.Logger
	tracer    trace.Tracer
}

// EngineConfig holds the collaborators an Engine requires.
type EngineConfig struct {
	// Store keeps per-context conversation history.
	Store conversation.Store
	// Limiter admits or denies callers.
	Limiter ratelimit.Limiter
	// Analyzer judges code and proposes fixes.
	Analyzer analysis.Analyzer
	// RateLimit is the per-minute quota reported in rate-limit errors.
	RateLimit int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the [*slog.Logger] for the Engine.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEngineTracer sets the [trace.Tracer] for the Engine.
func WithEngineTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = ratelimit.DefaultLimit
	}
	e := &Engine{
		store:     cfg.Store,
		limiter:   cfg.Limiter,
		analyzer:  cfg.Analyzer,
		rateLimit: rateLimit,
		logger:    slog.Default(),
		tracer:    otel.GetTracerProvider().Tracer("github.com/telexintegrations/sniffbot/server"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ProcessRequest carries one validated RPC call into the engine.
type ProcessRequest struct {
	// Caller is the resolved identity, used for rate limiting only.
	Caller auth.User
	// Turns are the user turns supplied with this call, oldest first.
	// May be empty for an execute call resuming a stored context.
	Turns []*sniffbot.A2AMessage
	// ContextID scopes the conversation. Minted when empty.
	ContextID string
	// TaskID identifies the task. Minted when empty.
	TaskID string
}

// Process runs the task state machine for one call and returns the terminal
// Task. Rate-limit denials and analysis failures return a
// [sniffbot.ProtocolError]; no conversation turns are recorded for those.
func (e *Engine) Process(ctx context.Context, req ProcessRequest) (*sniffbot.Task, error) {
	taskID, contextID := sniffbot.ResolveIDs(req.TaskID, e.resolveContextID(req))

	ctx, span := e.tracer.Start(ctx, "sniffbot.engine.Process",
		trace.WithAttributes(
			attribute.String("sniffbot.task_id", taskID),
			attribute.String("sniffbot.context_id", contextID),
		))
	defer span.End()

	caller := req.Caller
	if caller == nil {
		caller = auth.AnonymousUser{}
	}

	if allowed, retryAfter := e.limiter.Allow(caller.Identifier()); !allowed {
		e.logger.WarnContext(ctx, "rate limited",
			slog.String("identifier", caller.Identifier()),
			slog.Duration("retry_after", retryAfter),
		)
		return nil, sniffbot.RateLimitedError{
			Identifier: caller.Identifier(),
			Limit:      e.rateLimit,
			RetryAfter: retryAfter,
		}
	}

	history, err := e.store.History(ctx, contextID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load history",
			slog.String("context_id", contextID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	turns := req.Turns
	recordUser := true
	if len(turns) == 0 {
		// An execute call without messages resumes the stored context:
		// re-process the latest user-authored turn. Stored turns are never
		// re-appended; only the fresh reply is new.
		if latestUser := sniffbot.LastMessageByRole(history, sniffbot.RoleUser); latestUser != nil {
			turns = []*sniffbot.A2AMessage{latestUser}
			recordUser = false
		}
	}
	if len(turns) == 0 {
		reply := sniffbot.NewAgentTextMessage("**Error:** No message provided\n\nType `help` for usage.", contextID, taskID)
		return sniffbot.FailedTask(taskID, contextID, reply, nil), nil
	}

	latest := turns[len(turns)-1]
	text := sniffbot.GetMessageText(latest, " ")
	lower := strings.ToLower(strings.TrimSpace(text))
	code, language := extract.Code(text)

	e.logger.InfoContext(ctx, "processing message",
		slog.String("task_id", taskID),
		slog.String("context_id", contextID),
		slog.Bool("has_code", code != ""),
		slog.String("language", language),
	)

	switch {
	case code == "" && isGreeting(lower):
		return e.inputRequired(ctx, taskID, contextID, review.GreetingReply, history, latest, recordUser)

	case code == "" && isHelpCommand(lower):
		return e.inputRequired(ctx, taskID, contextID, review.HelpReply, history, latest, recordUser)

	case strings.Contains(lower, triggerFixLast):
		return e.fixLast(ctx, taskID, contextID, history, turns, recordUser)

	case !extract.Explicit(text) && isAcknowledgment(lower) && hasRecentReview(append(history, turns...)):
		// Gratitude prose like "thanks :)" trips the keyword heuristic; an
		// acknowledgment after a delivered review outranks heuristic hits.
		// A fenced, inline, or indented block still wins.
		return e.inputRequired(ctx, taskID, contextID, review.AckReply, history, latest, recordUser)

	case code != "":
		return e.reviewCode(ctx, taskID, contextID, code, language, history, latest, recordUser)

	case strings.Contains(lower, triggerSniff):
		return e.inputRequired(ctx, taskID, contextID, review.NoCodeReply, history, latest, recordUser)

	default:
		return e.inputRequired(ctx, taskID, contextID, review.PromptReply, history, latest, recordUser)
	}
}

// resolveContextID prefers the explicit params value, then the latest
// turn's own contextId.
func (e *Engine) resolveContextID(req ProcessRequest) string {
	if req.ContextID != "" {
		return req.ContextID
	}
	for i := len(req.Turns) - 1; i >= 0; i-- {
		if req.Turns[i] != nil && req.Turns[i].ContextID != "" {
			return req.Turns[i].ContextID
		}
	}
	return ""
}

// reviewCode runs the analysis backend and assembles a completed task.
func (e *Engine) reviewCode(ctx context.Context, taskID, contextID, code, language string, history []*sniffbot.A2AMessage, userTurn *sniffbot.A2AMessage, recordUser bool) (*sniffbot.Task, error) {
	result, err := e.analyzer.Analyze(ctx, code, language)
	if err != nil {
		e.logger.ErrorContext(ctx, "analysis failed",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	replyText, artifacts := review.Build(result, code)
	return e.completed(ctx, taskID, contextID, replyText, artifacts, history, userTurn, recordUser)
}

// fixLast re-analyzes the most recent prior user turn that carried code.
func (e *Engine) fixLast(ctx context.Context, taskID, contextID string, history, turns []*sniffbot.A2AMessage, recordUser bool) (*sniffbot.Task, error) {
	latest := turns[len(turns)-1]

	prior := append(append([]*sniffbot.A2AMessage{}, history...), turns[:len(turns)-1]...)
	var code, language string
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i] == nil || prior[i].Role != sniffbot.RoleUser {
			continue
		}
		if c, l := extract.Code(sniffbot.GetMessageText(prior[i], " ")); c != "" {
			code, language = c, l
			break
		}
	}
	if code == "" {
		return e.inputRequired(ctx, taskID, contextID, review.NoPreviousCodeReply, history, latest, recordUser)
	}

	result, err := e.analyzer.Analyze(ctx, code, language)
	if err != nil {
		e.logger.ErrorContext(ctx, "analysis failed",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	replyText, artifacts := review.BuildReReview(result, code)
	return e.completed(ctx, taskID, contextID, replyText, artifacts, history, latest, recordUser)
}

// completed records the exchange and returns a completed task with its
// artifacts and a history snapshot. When recordUser is false the user turn
// already lives in the store and only the reply is appended.
func (e *Engine) completed(ctx context.Context, taskID, contextID, replyText string, artifacts []sniffbot.Artifact, history []*sniffbot.A2AMessage, userTurn *sniffbot.A2AMessage, recordUser bool) (*sniffbot.Task, error) {
	reply := sniffbot.NewAgentTextMessage(replyText, contextID, taskID)
	if err := e.record(ctx, contextID, userTurn, reply, recordUser); err != nil {
		return nil, err
	}
	return sniffbot.CompletedTask(taskID, contextID, reply, artifacts, e.snapshot(history, userTurn, reply, recordUser)), nil
}

// inputRequired records the exchange and returns an input-required task
// with no artifacts.
func (e *Engine) inputRequired(ctx context.Context, taskID, contextID, replyText string, history []*sniffbot.A2AMessage, userTurn *sniffbot.A2AMessage, recordUser bool) (*sniffbot.Task, error) {
	reply := sniffbot.NewAgentTextMessage(replyText, contextID, taskID)
	if err := e.record(ctx, contextID, userTurn, reply, recordUser); err != nil {
		return nil, err
	}
	return sniffbot.InputRequiredTask(taskID, contextID, reply, e.snapshot(history, userTurn, reply, recordUser)), nil
}

func (e *Engine) record(ctx context.Context, contextID string, userTurn, reply *sniffbot.A2AMessage, recordUser bool) error {
	if recordUser {
		return e.store.Append(ctx, contextID, userTurn, reply)
	}
	return e.store.Append(ctx, contextID, reply)
}

func (e *Engine) snapshot(history []*sniffbot.A2AMessage, userTurn, reply *sniffbot.A2AMessage, recordUser bool) []*sniffbot.A2AMessage {
	snapshot := append([]*sniffbot.A2AMessage{}, history...)
	if recordUser {
		snapshot = append(snapshot, userTurn)
	}
	return append(snapshot, reply)
}

// greetingWords trigger the introduction reply when the agent is mentioned
// without a command.
var greetingWords = []string{"hi", "hello", "hey", "yo", "sup", "morning", "evening"}

func isGreeting(text string) bool {
	if !strings.Contains(text, triggerMention) {
		return false
	}
	if strings.Contains(text, "sniff this") || strings.Contains(text, "fix last") {
		return false
	}
	for _, word := range words(text) {
		for _, greeting := range greetingWords {
			if word == greeting {
				return true
			}
		}
	}
	return false
}

// helpWords trigger the usage reply. Checked only on messages carrying no
// code, so punctuation inside snippets cannot misfire.
var helpWords = []string{"help", "?", "how", "what", "usage", "commands"}

func isHelpCommand(text string) bool {
	for _, cmd := range helpWords {
		if strings.Contains(text, cmd) {
			return true
		}
	}
	return false
}

// ackPhrases is the explicit allow-list of gratitude follow-ups. Kept
// deliberately small; this is phrase matching, not intent classification.
var ackPhrases = []string{"thank", "cheers", "appreciated"}

// ackWords are short forms matched as whole words only.
var ackWords = []string{"thx", "ty"}

func isAcknowledgment(text string) bool {
	for _, phrase := range ackPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	for _, word := range words(text) {
		for _, ack := range ackWords {
			if word == ack {
				return true
			}
		}
	}
	return false
}

// hasRecentReview reports whether one of the trailing turns is an agent
// reply that delivered a review.
func hasRecentReview(history []*sniffbot.A2AMessage) bool {
	start := len(history) - followUpLookback
	if start < 0 {
		start = 0
	}
	for _, msg := range history[start:] {
		if msg == nil || msg.Role != sniffbot.RoleAgent {
			continue
		}
		text := sniffbot.GetMessageText(msg, " ")
		if strings.Contains(text, "SniffBot Code Review") || strings.Contains(text, "SniffBot Code Re-Review") {
			return true
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/telexintegrations/sniffbot"
	"github.com/telexintegrations/sniffbot/auth"
)

// DefaultEndpoint is the JSON-RPC endpoint path.
const DefaultEndpoint = "/a2a/sniff"

// AgentName is the agent identity reported on the health endpoint and
// agent card.
const AgentName = "SniffBot"

// SchedulerInfo exposes the introspection the health endpoint reports
// about the weekly publisher.
type SchedulerInfo interface {
	// ActiveJobs returns the number of scheduled jobs.
	ActiveJobs() int
	// NextRun returns the next scheduled fire time in UTC, or the zero
	// time when nothing is scheduled.
	NextRun() time.Time
}

// Server is the HTTP front of the SniffBot agent. Application-level faults
// always surface as well-formed JSON-RPC error objects; transport-level
// status codes are reserved for malformed envelopes (400) and rate
// limiting (429).
type Server struct {
	engine    *Engine
	mux       *http.ServeMux
	endpoint  string
	model     string
	rateLimit int
	scheduler SchedulerInfo
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option represents an option for configuring the [Server].
type Option func(*Server)

// WithEndpoint sets a custom JSON-RPC endpoint path.
func WithEndpoint(endpoint string) Option {
	return func(s *Server) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

// WithModel sets the analysis model name reported on the health endpoint.
func WithModel(model string) Option {
	return func(s *Server) {
		s.model = model
	}
}

// WithScheduler wires the weekly publisher into health introspection.
func WithScheduler(info SchedulerInfo) Option {
	return func(s *Server) {
		s.scheduler = info
	}
}

// WithLogger sets the [*slog.Logger] for the [Server].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the [trace.Tracer] for the [Server].
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New creates a Server around an Engine.
func New(engine *Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	s := &Server{
		engine:    engine,
		mux:       http.NewServeMux(),
		endpoint:  DefaultEndpoint,
		rateLimit: engine.rateLimit,
		logger:    slog.Default(),
		tracer:    otel.GetTracerProvider().Tracer("github.com/telexintegrations/sniffbot/server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerHandlers()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("POST "+s.endpoint, s.handleRPC)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /.well-known/agent.json", s.handleAgentCard)
}

// handleRPC handles the JSON-RPC endpoint for message/send and execute.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "sniffbot.server.handleRPC")
	defer span.End()

	var req sniffbot.JSONRPCRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, nil, sniffbot.NewJSONParseError())
		return
	}
	defer r.Body.Close()

	span.SetAttributes(attribute.String("rpc.method", req.Method))

	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, req.ID, sniffbot.NewInvalidRequestError())
		return
	}
	if !sniffbot.KnownMethod(req.Method) {
		s.writeError(w, http.StatusBadRequest, req.ID, sniffbot.NewMethodNotFoundError())
		return
	}

	proc, rpcErr := s.buildProcessRequest(req)
	if rpcErr != nil {
		s.writeError(w, http.StatusBadRequest, req.ID, rpcErr)
		return
	}
	proc.Caller = auth.ResolveUser(r)

	s.logger.InfoContext(ctx, "incoming request",
		slog.Any("rpc_id", req.ID),
		slog.String("method", req.Method),
		slog.String("identifier", proc.Caller.Identifier()),
	)

	task, err := s.engine.Process(ctx, proc)
	if err != nil {
		s.writeEngineError(ctx, w, req.ID, err)
		return
	}

	s.writeJSON(w, http.StatusOK, sniffbot.NewResultResponse(req.ID, task))
}

// buildProcessRequest decodes and validates the method params.
func (s *Server) buildProcessRequest(req sniffbot.JSONRPCRequest) (ProcessRequest, *sniffbot.JSONRPCError) {
	switch req.Method {
	case sniffbot.MethodMessageSend:
		var params sniffbot.MessageSendParams
		if err := sonic.Unmarshal(req.Params, &params); err != nil {
			return ProcessRequest{}, sniffbot.NewInvalidParamsError(err.Error())
		}
		if err := params.Validate(); err != nil {
			return ProcessRequest{}, sniffbot.NewInvalidParamsError(err.Error())
		}
		return ProcessRequest{
			Turns:     []*sniffbot.A2AMessage{params.Message},
			ContextID: params.Message.ContextID,
			TaskID:    params.Message.TaskID,
		}, nil

	case sniffbot.MethodExecute:
		var params sniffbot.ExecuteParams
		if err := sonic.Unmarshal(req.Params, &params); err != nil {
			return ProcessRequest{}, sniffbot.NewInvalidParamsError(err.Error())
		}
		if err := params.Validate(); err != nil {
			return ProcessRequest{}, sniffbot.NewInvalidParamsError(err.Error())
		}
		return ProcessRequest{
			Turns:     params.Turns(),
			ContextID: params.ContextID,
			TaskID:    params.TaskID,
		}, nil

	default:
		return ProcessRequest{}, sniffbot.NewMethodNotFoundError()
	}
}

// writeEngineError maps engine failures onto transport status codes:
// rate limiting to 429 with Retry-After, everything else to HTTP success
// framing with a JSON-RPC error object.
func (s *Server) writeEngineError(ctx context.Context, w http.ResponseWriter, id any, err error) {
	var protoErr sniffbot.ProtocolError
	if errors.As(err, &protoErr) {
		if rl, ok := protoErr.(sniffbot.RateLimitedError); ok {
			retryAfter := int(math.Ceil(rl.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			s.writeError(w, http.StatusTooManyRequests, id, rl.RPCError())
			return
		}
		s.writeError(w, http.StatusOK, id, protoErr.RPCError())
		return
	}

	s.logger.ErrorContext(ctx, "request processing failed", slog.String("error", err.Error()))
	s.writeError(w, http.StatusOK, id, sniffbot.NewInternalError())
}

// healthResponse is the health endpoint payload.
type healthResponse struct {
	Status              string  `json:"status"`
	Agent               string  `json:"agent"`
	Model               string  `json:"model"`
	RateLimit           string  `json:"rate_limit"`
	ActiveSchedulerJobs int     `json:"active_scheduler_jobs"`
	NextSmellOfTheWeek  *string `json:"next_smell_of_the_week"`
}

// handleHealth serves liveness and scheduler introspection.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Agent:     AgentName,
		Model:     s.model,
		RateLimit: fmt.Sprintf("%d per minute per user", s.rateLimit),
	}
	if s.scheduler != nil {
		resp.ActiveSchedulerJobs = s.scheduler.ActiveJobs()
		if next := s.scheduler.NextRun(); !next.IsZero() {
			formatted := next.UTC().Format(time.RFC3339)
			resp.NextSmellOfTheWeek = &formatted
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// agentCard is the A2A discovery document served at the well-known path.
type agentCard struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	URL         string   `json:"url"`
	InputModes  []string `json:"defaultInputModes"`
	OutputModes []string `json:"defaultOutputModes"`
}

// handleAgentCard serves the agent card.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, agentCard{
		Name:        AgentName,
		Description: "AI-powered code review agent that speaks JSON-RPC 2.0",
		Version:     sniffbot.Version,
		URL:         s.endpoint,
		InputModes:  []string{"text"},
		OutputModes: []string{"text"},
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, id any, rpcErr *sniffbot.JSONRPCError) {
	s.writeJSON(w, status, sniffbot.NewErrorResponse(id, rpcErr))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

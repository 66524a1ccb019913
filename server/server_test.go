// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/telexintegrations/sniffbot"
	"github.com/telexintegrations/sniffbot/auth"
	"github.com/telexintegrations/sniffbot/ratelimit"
)

type stubScheduler struct {
	jobs int
	next time.Time
}

func (s stubScheduler) ActiveJobs() int    { return s.jobs }
func (s stubScheduler) NextRun() time.Time { return s.next }

func newTestServer(t *testing.T, analyzer *stubAnalyzer, limiter ratelimit.Limiter, opts ...Option) *Server {
	t.Helper()
	engine, _ := newTestEngine(t, analyzer, limiter)
	srv, err := New(engine, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func postRPC(t *testing.T, srv *Server, body string, headers map[string]string) (*httptest.ResponseRecorder, sniffbot.JSONRPCResponse) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, DefaultEndpoint, strings.NewReader(body))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	var resp sniffbot.JSONRPCResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, w.Body.String())
	}
	return w, resp
}

func TestServerMessageSend(t *testing.T) {
	analyzer := &stubAnalyzer{result: typeErrorVerdict()}
	srv := newTestServer(t, analyzer, nil)

	body := `{
		"jsonrpc": "2.0",
		"id": "req-1",
		"method": "message/send",
		"params": {
			"message": {
				"role": "user",
				"parts": [{"kind": "text", "text": "@SniffBot sniff this\n` + "```" + `python\nx = 1 + \"hello\"\n` + "```" + `"}],
				"messageId": "msg-1",
				"contextId": "ctx-1"
			}
		}
	}`

	w, resp := postRPC(t, srv, body, map[string]string{auth.HeaderTelexUser: "user-1"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Fatal("response carries no result")
	}
	if resp.Result.Status.State != sniffbot.TaskStateCompleted {
		t.Errorf("state = %q, want completed", resp.Result.Status.State)
	}
	if len(resp.Result.Artifacts) != 3 {
		t.Errorf("got %d artifacts, want 3", len(resp.Result.Artifacts))
	}
}

func TestServerMalformedJSON(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil)

	w, resp := postRPC(t, srv, "{not json", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.JSONParseErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.JSONParseErrorCode)
	}
}

func TestServerInvalidEnvelope(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil)

	w, resp := postRPC(t, srv, `{"jsonrpc":"1.0","id":"req-1","method":"message/send","params":{}}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.InvalidRequestErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.InvalidRequestErrorCode)
	}
}

func TestServerMethodNotFound(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil)

	w, resp := postRPC(t, srv, `{"jsonrpc":"2.0","id":"req-1","method":"tasks/get","params":{}}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.MethodNotFoundErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.MethodNotFoundErrorCode)
	}
}

func TestServerInvalidParams(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil)

	w, resp := postRPC(t, srv, `{"jsonrpc":"2.0","id":"req-1","method":"message/send","params":{}}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.InvalidParamsErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.InvalidParamsErrorCode)
	}
}

func TestServerRateLimited(t *testing.T) {
	analyzer := &stubAnalyzer{result: typeErrorVerdict()}
	srv := newTestServer(t, analyzer, ratelimit.NewSlidingWindow(2))

	body := `{"jsonrpc":"2.0","id":"req-1","method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"` + "```" + `\nx = 1\n` + "```" + `"}],"messageId":"msg-1","contextId":"ctx-1"}}}`
	headers := map[string]string{auth.HeaderTelexUser: "user-1"}

	for range 2 {
		if w, _ := postRPC(t, srv, body, headers); w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	}

	w, resp := postRPC(t, srv, body, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.RateLimitedErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.RateLimitedErrorCode)
	}
}

func TestServerAnalysisTimeout(t *testing.T) {
	analyzer := &stubAnalyzer{err: sniffbot.AnalysisTimeoutError{Timeout: time.Second}}
	srv := newTestServer(t, analyzer, nil)

	body := `{"jsonrpc":"2.0","id":"req-1","method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"` + "```" + `\nx = 1\n` + "```" + `"}],"messageId":"msg-1"}}}`

	w, resp := postRPC(t, srv, body, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (error carried in the JSON-RPC object)", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != sniffbot.AnalysisTimeoutErrorCode {
		t.Errorf("error = %+v, want code %d", resp.Error, sniffbot.AnalysisTimeoutErrorCode)
	}
}

func TestServerExecuteMethod(t *testing.T) {
	analyzer := &stubAnalyzer{result: typeErrorVerdict()}
	srv := newTestServer(t, analyzer, nil)

	body := `{
		"jsonrpc": "2.0",
		"id": "req-2",
		"method": "execute",
		"params": {
			"contextId": "ctx-9",
			"taskId": "task-9",
			"messages": [
				{"role": "user", "parts": [{"kind": "text", "text": "` + "```" + `\ny = 2\n` + "```" + `"}], "messageId": "msg-1"}
			],
			"configuration": {"blocking": false}
		}
	}`

	w, resp := postRPC(t, srv, body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if resp.Result == nil {
		t.Fatalf("response carries no result: %+v", resp.Error)
	}
	if resp.Result.ID != "task-9" || resp.Result.ContextID != "ctx-9" {
		t.Errorf("ids = (%q, %q), want (task-9, ctx-9)", resp.Result.ID, resp.Result.ContextID)
	}
}

func TestServerHealth(t *testing.T) {
	next := time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC)
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil,
		WithModel("llama-3.1-8b-instant"),
		WithScheduler(stubScheduler{jobs: 1, next: next}),
	)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp healthResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "healthy" || resp.Agent != AgentName {
		t.Errorf("status/agent = (%q, %q)", resp.Status, resp.Agent)
	}
	if resp.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.RateLimit != "10 per minute per user" {
		t.Errorf("rate_limit = %q", resp.RateLimit)
	}
	if resp.ActiveSchedulerJobs != 1 {
		t.Errorf("active_scheduler_jobs = %d, want 1", resp.ActiveSchedulerJobs)
	}
	if resp.NextSmellOfTheWeek == nil || *resp.NextSmellOfTheWeek != "2025-06-06T10:00:00Z" {
		t.Errorf("next_smell_of_the_week = %v", resp.NextSmellOfTheWeek)
	}
}

func TestServerAgentCard(t *testing.T) {
	srv := newTestServer(t, &stubAnalyzer{result: typeErrorVerdict()}, nil)

	r := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var card agentCard
	if err := sonic.Unmarshal(w.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode agent card: %v", err)
	}
	if card.Name != AgentName || card.Version != sniffbot.Version {
		t.Errorf("card = %+v", card)
	}
}

func TestServerContextCancellation(t *testing.T) {
	// A cancelled inbound request must not wedge the handler.
	analyzer := &stubAnalyzer{result: typeErrorVerdict()}
	srv := newTestServer(t, analyzer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := `{"jsonrpc":"2.0","id":"req-1","method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"hello"}],"messageId":"msg-1"}}}`
	r := httptest.NewRequest(http.MethodPost, DefaultEndpoint, strings.NewReader(body)).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	if w.Code == 0 {
		t.Error("handler wrote no response")
	}
}

// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/telexintegrations/sniffbot"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		Retryable:    IsTransient,
	}
}

func writeTaskResponse(w http.ResponseWriter, id any) {
	task := sniffbot.CompletedTask("task-1", "ctx-1", nil, nil, nil)
	resp := sniffbot.NewResultResponse(id, task)
	w.Header().Set("Content-Type", "application/json")
	if err := json.MarshalWrite(w, resp); err != nil {
		panic(err)
	}
}

func TestClientSendText(t *testing.T) {
	var gotMethod atomic.Pointer[string]
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sniffbot.JSONRPCRequest
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotMethod.Store(&req.Method)

		var params sniffbot.MessageSendParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if got := sniffbot.GetMessageText(params.Message, "\n"); got != "sniff this" {
			t.Errorf("text = %q", got)
		}
		writeTaskResponse(w, req.ID)
	}))
	defer ts.Close()

	c, err := New(ts.URL, WithRetryConfig(fastRetry()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	task, err := c.SendText(context.Background(), "sniff this", "ctx-1")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if task.ID != "task-1" || task.Status.State != sniffbot.TaskStateCompleted {
		t.Errorf("task = %+v", task)
	}
	if gotMethod.Load() == nil || *gotMethod.Load() != sniffbot.MethodMessageSend {
		t.Errorf("method = %v, want message/send", gotMethod.Load())
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
			return
		}
		var req sniffbot.JSONRPCRequest
		_ = json.UnmarshalRead(r.Body, &req)
		writeTaskResponse(w, req.ID)
	}))
	defer ts.Close()

	c, err := New(ts.URL, WithRetryConfig(fastRetry()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	task, err := c.SendText(context.Background(), "code", "ctx-1")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if task == nil {
		t.Fatal("task is nil")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestClientDoesNotRetryRateLimit(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"req-1","error":{"code":-32000,"message":"Rate limited: 10 requests per minute per user"}}`)
	}))
	defer ts.Close()

	c, err := New(ts.URL, WithRetryConfig(fastRetry()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.SendText(context.Background(), "code", "ctx-1")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != sniffbot.RateLimitedErrorCode || rpcErr.Status != http.StatusTooManyRequests {
		t.Errorf("rpc error = %+v", rpcErr)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 429)", got)
	}
}

func TestClientExecuteValidatesParams(t *testing.T) {
	c, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Execute(context.Background(), sniffbot.ExecuteParams{}); err == nil {
		t.Error("Execute() with empty params should fail before hitting the network")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
}

func TestIsTransient(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"network error":   {err: errors.New("connection refused"), want: true},
		"http 500":        {err: &RPCError{Code: -32603, Status: 500}, want: true},
		"http 503":        {err: &RPCError{Code: -32603, Status: 503}, want: true},
		"rate limited":    {err: &RPCError{Code: -32000, Status: 429}, want: false},
		"invalid request": {err: &RPCError{Code: -32600, Status: 400}, want: false},
		"analysis fault":  {err: &RPCError{Code: -32010, Status: 200}, want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func okCompletion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
	}
}

func TestOpenAIChat(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		json.NewEncoder(w).Encode(okCompletion("hi there"))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test", "sk-key", srv.URL, "default-model")
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi there" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if gotAuth != "Bearer sk-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotModel != "default-model" {
		t.Errorf("model = %q, want default", gotModel)
	}

	// Request model overrides the default.
	if _, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "again"}},
		Model:    "override-model",
	}); err != nil {
		t.Fatal(err)
	}
	if gotModel != "override-model" {
		t.Errorf("model = %q, want override", gotModel)
	}
}

func TestOpenAIChat_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(okCompletion("eventually"))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test", "sk-key", srv.URL, "m")
	if err != nil {
		t.Fatal(err)
	}
	p.retryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "eventually" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestOpenAIChat_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test", "sk-key", srv.URL, "m")
	if err != nil {
		t.Fatal(err)
	}
	p.retryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	if _, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatal("400 should surface as an error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestOpenAIChat_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test", "sk-key", srv.URL, "m")
	if err != nil {
		t.Fatal(err)
	}
	p.retryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}

	if _, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatal("persistent 500s should error out")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

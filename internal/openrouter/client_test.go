package openrouter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("", "", "", discardLogger())
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("expected system message first, got %q", req.Messages[0].Role)
		}
		// The JSON-only reminder must be appended to the system prompt.
		if !strings.Contains(req.Messages[0].Content, "ONLY the raw JSON") {
			t.Errorf("expected augmented system prompt, got %q", req.Messages[0].Content)
		}
		if req.Messages[1].Content != "transcript text" {
			t.Errorf("unexpected user prompt: %q", req.Messages[1].Content)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(completionBody(`{"score": 65}`))
	}))
	defer server.Close()

	c, err := NewClient("test-key", "http://localhost", "test", discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.SetTestTransport(server.URL)

	result := c.Invoke(context.Background(), "test-model", "analyze this", "transcript text")
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %#v", result)
	}
	if m["score"] != float64(65) {
		t.Errorf("expected score 65, got %v", m["score"])
	}
}

func TestInvoke_DefaultsModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != DefaultModel {
			t.Errorf("expected default model %q, got %q", DefaultModel, req.Model)
		}
		json.NewEncoder(w).Encode(completionBody(`{}`))
	}))
	defer server.Close()

	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport(server.URL)

	if result := c.Invoke(context.Background(), "", "sys", "user"); result == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestInvoke_RateLimitRetriesOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(completionBody(`{"retried": true}`))
	}))
	defer server.Close()

	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport(server.URL)

	result := c.Invoke(context.Background(), "test-model", "sys", "user")
	if result == nil {
		t.Fatal("expected result after retry, got nil")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestInvoke_RateLimitTwiceGivesUp(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport(server.URL)

	if result := c.Invoke(context.Background(), "test-model", "sys", "user"); result != nil {
		t.Errorf("expected nil after persistent rate limit, got %#v", result)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls)
	}
}

func TestInvoke_APIErrorReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 502, "message": "provider unavailable"},
		})
	}))
	defer server.Close()

	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport(server.URL)

	if result := c.Invoke(context.Background(), "test-model", "sys", "user"); result != nil {
		t.Errorf("expected nil on api error, got %#v", result)
	}
}

func TestInvoke_GarbageContentReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionBody("I am sorry, I cannot answer that."))
	}))
	defer server.Close()

	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport(server.URL)

	if result := c.Invoke(context.Background(), "test-model", "sys", "user"); result != nil {
		t.Errorf("expected nil for non-JSON content, got %#v", result)
	}
}

func TestInvoke_TransportErrorReturnsNil(t *testing.T) {
	c, _ := NewClient("test-key", "", "", discardLogger())
	c.SetTestTransport("http://127.0.0.1:1") // nothing listens here

	if result := c.Invoke(context.Background(), "test-model", "sys", "user"); result != nil {
		t.Errorf("expected nil on transport error, got %#v", result)
	}
}

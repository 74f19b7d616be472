package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maroco/major-mentor/internal/core/domain"
	"github.com/maroco/major-mentor/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     2,
		},
		Breaker: resilience.BreakerPolicy{Enabled: false},
	}, nil)
}

func TestGenerateJSONStripsWrappingProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["format"] != "json" {
			t.Fatalf("format = %v, want json", payload["format"])
		}
		_, _ = w.Write([]byte(`{"response":"Here you go: {\"type\":\"final\",\"answer\":\"ok\"} Hope this helps!"}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	out, err := client.GenerateJSONFromPrompt(context.Background(), "plan")
	if err != nil {
		t.Fatalf("GenerateJSONFromPrompt() error = %v", err)
	}
	if out != `{"type":"final","answer":"ok"}` {
		t.Fatalf("output = %q", out)
	}
}

func TestGenerateSendsPrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"답변"}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	out, err := client.GenerateFromPrompt(context.Background(), "컴퓨터공학과 과목 추천")
	if err != nil {
		t.Fatalf("GenerateFromPrompt() error = %v", err)
	}
	if out != "답변" {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(capturedPrompt, "컴퓨터공학과") {
		t.Fatalf("prompt = %q", capturedPrompt)
	}
}

func TestEmbedRetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	vec, err := client.EmbedQuery(context.Background(), "컴퓨터공학과")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("vector len = %d, want 2", len(vec))
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestExhaustedRetriesMapToModelUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	_, err := client.GenerateFromPrompt(context.Background(), "prompt")
	if !domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("error kind = %v, want ErrModelUnavailable", err)
	}
}

func TestBadRequestIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unknown model", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	_, err := client.GenerateFromPrompt(context.Background(), "prompt")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrModelUnavailable) {
		t.Fatalf("semantic failure typed as unavailable: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if !strings.Contains(err.Error(), "unknown model") {
		t.Fatalf("error should carry response body: %v", err)
	}
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "gen", "embed", testExecutor())
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

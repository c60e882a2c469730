package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/llm"
)

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Stream {
			t.Error("expected streaming disabled")
		}
		if req.Model != "qwen2.5:1.5b" || req.Options == nil || req.Options.NumPredict != 128 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"qwen2.5:1.5b","message":{"role":"assistant","content":"Hola"},"done":true,"prompt_eval_count":7,"eval_count":2}`))
	}))
	defer srv.Close()

	cfg := llm.Config{Dialect: Dialect, BaseURL: srv.URL, Model: "qwen2.5:1.5b", MaxTokens: 128}
	cfg.ApplyDefaults()
	resp, err := New(cfg).Execute(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Content != "Hola" || resp.Usage.TotalTokens != 9 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestExecute_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(llm.Config{Name: "ollama-llm", BaseURL: srv.URL, Model: "m"}).Execute(context.Background(), llm.CompletionRequest{})
	if !errors.HasCode(err, errors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestBuildChatRequest_NoOptions(t *testing.T) {
	req := buildChatRequest(llm.CompletionRequest{Model: "m", SystemPrompt: "s"})
	if req.Options != nil {
		t.Errorf("expected no options, got %+v", req.Options)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleSystem {
		t.Errorf("unexpected messages %+v", req.Messages)
	}
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if !New(llm.Config{BaseURL: srv.URL}).IsAvailable(context.Background()) {
		t.Error("expected available")
	}
}

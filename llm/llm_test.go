package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/provider"
	"github.com/kbukum/stageflow/resilience"
)

// --- test helpers ---

type fakeProvider struct {
	name  string
	calls atomic.Int32
	fn    func(n int32, req CompletionRequest) (CompletionResponse, error)
}

func (f *fakeProvider) Name() string                     { return f.name }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }
func (f *fakeProvider) Execute(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.fn(f.calls.Add(1), req)
}

func validConfig(dialect string) Config {
	return Config{Dialect: dialect, BaseURL: "http://localhost:1234", Model: "m"}
}

// --- config ---

func TestConfig_Defaults(t *testing.T) {
	cfg := validConfig("openai")
	cfg.ApplyDefaults()
	if cfg.Timeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %v", cfg.Timeout)
	}
	if cfg.Name != "openai-llm" {
		t.Errorf("expected name openai-llm, got %s", cfg.Name)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing dialect", func(c *Config) { c.Dialect = "" }, "dialect"},
		{"bad url", func(c *Config) { c.BaseURL = "not a url" }, "base_url"},
		{"missing model", func(c *Config) { c.Model = "" }, "model"},
		{"temperature", func(c *Config) { c.Temperature = 3 }, "temperature"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig("openai")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected %s in %v", tc.field, err)
			}
		})
	}

	cfg := validConfig("openai")
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestApplyRequestDefaults(t *testing.T) {
	cfg := Config{Model: "default", Temperature: 0.3, MaxTokens: 64}
	req := CompletionRequest{Model: "override"}
	cfg.ApplyRequestDefaults(&req)
	if req.Model != "override" || req.Temperature != 0.3 || req.MaxTokens != 64 {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestAllMessages(t *testing.T) {
	req := CompletionRequest{SystemPrompt: "sys", Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	msgs := req.AllMessages()
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Content != "hi" {
		t.Errorf("unexpected messages %+v", msgs)
	}
	if got := (CompletionRequest{Messages: req.Messages}).AllMessages(); len(got) != 1 {
		t.Errorf("expected no system message, got %+v", got)
	}
}

// --- registry ---

func TestNew_UnknownDialect(t *testing.T) {
	_, err := New(validConfig("does-not-exist"))
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Dialect: "x"})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestNewProvider_AppliesResilience(t *testing.T) {
	fake := &fakeProvider{name: "flaky", fn: func(n int32, req CompletionRequest) (CompletionResponse, error) {
		if n < 3 {
			return CompletionResponse{}, errors.ServiceUnavailable("flaky")
		}
		return CompletionResponse{Content: "ok:" + req.Model}, nil
	}}
	RegisterDialect("flaky-test", func(Config) (Provider, error) { return fake, nil })

	var seen []string
	outer := func(inner Provider) Provider {
		return provider.Func(inner.Name(), func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			seen = append(seen, "outer")
			return inner.Execute(ctx, req)
		})
	}

	cfg := validConfig("flaky-test")
	cfg.Retry = &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	p, err := NewProvider(cfg, outer)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Execute(context.Background(), CompletionRequest{Model: "m"})
	if err != nil || resp.Content != "ok:m" {
		t.Fatalf("unexpected result %+v, %v", resp, err)
	}
	if fake.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.calls.Load())
	}
	if len(seen) != 1 {
		t.Errorf("outer middleware should wrap the retries once, saw %d calls", len(seen))
	}

	found := false
	for _, name := range Dialects() {
		found = found || name == "flaky-test"
	}
	if !found {
		t.Errorf("expected flaky-test in %v", Dialects())
	}
}

// --- helpers ---

func TestComplete(t *testing.T) {
	fake := &fakeProvider{name: "echo", fn: func(_ int32, req CompletionRequest) (CompletionResponse, error) {
		msgs := req.AllMessages()
		return CompletionResponse{Content: "  " + msgs[0].Content + "/" + msgs[1].Content + "\n"}, nil
	}}
	out, err := Complete(context.Background(), fake, "sys", "user")
	if err != nil || out != "sys/user" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
}

func TestContent_Empty(t *testing.T) {
	_, err := Content("svc", CompletionResponse{Content: " \n"})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeExternalService || appErr.Retryable {
		t.Fatalf("expected non-retryable EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

// --- client ---

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/echo" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.Header.Get("X-Team"); got != "blue" {
			t.Errorf("expected custom header, got %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["text"]})
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL + "/v1/", APIKey: "secret", Headers: map[string]string{"X-Team": "blue"}, Timeout: time.Second}
	var out map[string]string
	err := NewClient("test", cfg).PostJSON(context.Background(), "/echo", map[string]string{"text": "hola"}, &out)
	if err != nil || out["echo"] != "hola" {
		t.Fatalf("unexpected result %v, %v", out, err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status    int
		code      errors.ErrorCode
		retryable bool
	}{
		{http.StatusTooManyRequests, errors.ErrCodeRateLimited, true},
		{http.StatusBadGateway, errors.ErrCodeServiceUnavailable, true},
		{http.StatusUnauthorized, errors.ErrCodeExternalService, false},
		{http.StatusBadRequest, errors.ErrCodeExternalService, false},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"nope"}`, tc.status)
			}))
			defer srv.Close()

			var out any
			err := NewClient("svc", Config{BaseURL: srv.URL, Timeout: time.Second}).PostJSON(context.Background(), "/x", struct{}{}, &out)
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != tc.code || appErr.Retryable != tc.retryable {
				t.Fatalf("expected %s (retryable=%v), got %v", tc.code, tc.retryable, err)
			}
			if appErr.Details["status"] != tc.status {
				t.Errorf("expected status detail, got %v", appErr.Details)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	var out any
	err := NewClient("slow", Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}).PostJSON(context.Background(), "/x", struct{}{}, &out)
	if !errors.HasCode(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out any
	err := NewClient("svc", Config{BaseURL: srv.URL, Timeout: time.Second}).PostJSON(ctx, "/x", struct{}{}, &out)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("svc", Config{BaseURL: srv.URL, Timeout: time.Second})
	if !c.Get(context.Background(), "/health") {
		t.Error("expected healthy")
	}
	if c.Get(context.Background(), "/missing") {
		t.Error("expected unhealthy")
	}
}

package agent

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/kbukum/stageflow/errors"
	"github.com/kbukum/stageflow/llm"
	"github.com/kbukum/stageflow/provider"
	"github.com/kbukum/stageflow/workflow"
)

// fakeTranslator "translates" by tagging the last user message with the
// language named in the system prompt.
func fakeTranslator(requests *[]llm.CompletionRequest) llm.Provider {
	return provider.Func("fake", func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		if requests != nil {
			*requests = append(*requests, req)
		}
		lang := strings.Fields(strings.TrimPrefix(req.SystemPrompt, "Translate the given text to "))[0]
		lang = strings.TrimSuffix(lang, ".")
		last := req.Messages[len(req.Messages)-1].Content
		return llm.CompletionResponse{Content: " " + last + "@" + lang + "\n"}, nil
	})
}

func TestNewTranslator(t *testing.T) {
	a := NewTranslator("French", fakeTranslator(nil), WithModel("small"))
	if a.Name != "FrenchAgent" || !strings.Contains(a.Instructions, "to French") {
		t.Errorf("unexpected agent %+v", a)
	}
	if a.model != "small" {
		t.Errorf("expected model override, got %q", a.model)
	}
}

func TestInvoke(t *testing.T) {
	var requests []llm.CompletionRequest
	a := NewTranslator("Spanish", fakeTranslator(&requests), WithModel("small"))

	conv := workflow.Conversation{{Role: workflow.RoleUser, Content: "earlier"}}
	out, err := a.Invoke(context.Background(), "hello", conv)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "hello@Spanish" {
		t.Errorf("expected trimmed output, got %q", out)
	}

	req := requests[0]
	if req.Model != "small" || req.SystemPrompt != a.Instructions {
		t.Errorf("unexpected request %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Content != "earlier" || req.Messages[1].Role != llm.RoleUser {
		t.Errorf("expected history then input, got %+v", req.Messages)
	}
}

func TestInvoke_Errors(t *testing.T) {
	boom := stderrors.New("boom")
	failing := provider.Func("failing", func(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, boom
	})
	if _, err := New("a", "x", failing).Invoke(context.Background(), "in", nil); !stderrors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}

	empty := provider.Func("empty", func(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: "   "}, nil
	})
	if _, err := New("a", "x", empty).Invoke(context.Background(), "in", nil); !errors.HasCode(err, errors.ErrCodeExternalService) {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR for an empty reply, got %v", err)
	}

	if _, err := New("a", "x", nil).Invoke(context.Background(), "in", nil); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT without completer, got %v", err)
	}
}

func TestTranslationChain(t *testing.T) {
	completer := fakeTranslator(nil)
	g, err := workflow.Chain("translate",
		Stage(NewTranslator("French", completer), "to-french"),
		Stage(NewTranslator("Spanish", completer), "to-spanish"),
		Stage(NewTranslator("English", completer), "to-english"),
	)
	if err != nil {
		t.Fatal(err)
	}

	state, err := g.Execute(context.Background(), "Good morning")
	if err != nil {
		t.Fatal(err)
	}
	if state.CurrentPayload != "Good morning@French@Spanish@English" {
		t.Errorf("unexpected output %q", state.CurrentPayload)
	}
	if s, _ := g.Stage("to-spanish"); s.Name() != "SpanishAgent" {
		t.Errorf("unexpected stage name %s", s.Name())
	}
}

func TestTranslationChain_FailureStopsRun(t *testing.T) {
	calls := 0
	flaky := provider.Func("flaky", func(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
		calls++
		if strings.Contains(req.SystemPrompt, "Spanish") {
			return llm.CompletionResponse{}, errors.RateLimited("flaky")
		}
		return llm.CompletionResponse{Content: "ok"}, nil
	})
	g, err := workflow.Chain("translate",
		Stage(NewTranslator("French", flaky), "to-french"),
		Stage(NewTranslator("Spanish", flaky), "to-spanish"),
		Stage(NewTranslator("English", flaky), "to-english"),
	)
	if err != nil {
		t.Fatal(err)
	}

	state, err := g.Execute(context.Background(), "hi")
	if state.Status != workflow.StatusFailed || !errors.HasCode(err, errors.ErrCodeStageInvocation) {
		t.Fatalf("expected failed run, got %s, %v", state.Status, err)
	}
	if !errors.HasCode(err, errors.ErrCodeRateLimited) {
		t.Errorf("expected the provider error in the chain, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
}

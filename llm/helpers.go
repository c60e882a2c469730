package llm

import (
	"context"
	"strings"

	"github.com/kbukum/stageflow/errors"
)

// Complete sends a system and a user prompt and returns the trimmed reply.
// An empty reply is an EXTERNAL_SERVICE_ERROR.
func Complete(ctx context.Context, p Provider, system, user string) (string, error) {
	resp, err := p.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: user}},
	})
	if err != nil {
		return "", err
	}
	return Content(p.Name(), resp)
}

// Content returns the trimmed content of resp, or an error when it is empty.
func Content(service string, resp CompletionResponse) (string, error) {
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		e := errors.ExternalService(service, nil).WithDetail("reason", "empty completion")
		e.Message = service + " returned an empty completion"
		e.Retryable = false
		return "", e
	}
	return content, nil
}

package workflow

import (
	"context"
	"strings"

	"github.com/kbukum/stageflow/errors"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation context handed to stages.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Conversation is the read-only context a run passes to every stage.
type Conversation []Message

// Clone returns an independent copy.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Capability is the work a stage performs: given the current payload and the
// run's conversation it returns the payload for the next stage.
// Implementations may block; they receive the run's context.
type Capability interface {
	Invoke(ctx context.Context, input string, conv Conversation) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, input string, conv Conversation) (string, error)

// Invoke calls f.
func (f CapabilityFunc) Invoke(ctx context.Context, input string, conv Conversation) (string, error) {
	return f(ctx, input, conv)
}

// Identity returns its input unchanged.
var Identity = CapabilityFunc(func(_ context.Context, input string, _ Conversation) (string, error) {
	return input, nil
})

// Stage is one unit of sequential processing. Its identity is ID.
type Stage struct {
	ID          string
	DisplayName string
	Description string
	Capability  Capability
}

// Name returns DisplayName, or ID when no display name was given.
func (s Stage) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.ID
}

func (s Stage) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.InvalidInput("id", "stage id is required")
	}
	if s.Capability == nil {
		return errors.InvalidInput("capability", "stage "+s.ID+" has no capability")
	}
	return nil
}

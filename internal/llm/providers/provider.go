package providers

import (
	"context"
	"io"
)

// Message is one turn of a chat conversation. Assistant turns may carry tool
// calls; tool result turns carry the ID of the call they answer.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolSpec describes a callable tool offered to the model. Parameters is a
// JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a model request to execute a named tool. Arguments is the raw
// JSON argument object as returned by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ChatResult is the outcome of a tool-enabled chat round: either content, or
// one or more tool calls the caller is expected to execute.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatOptions tunes a single chat request.
type ChatOptions struct {
	Temperature *float64
}

// ChatOption mutates ChatOptions.
type ChatOption func(*ChatOptions)

// WithTemperature pins the sampling temperature. SQL generation uses 0.
func WithTemperature(t float64) ChatOption {
	return func(o *ChatOptions) {
		o.Temperature = &t
	}
}

// Provider abstracts the hosted AI endpoints the service depends on.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error)
	ChatTools(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResult, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Name() string
}

package providers

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// LocalProvider is a deterministic stand-in used when no API key is
// configured. It keeps the service bootable and the tests hermetic; answers
// are clearly marked as stubs.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	return "[local-stub] " + strings.TrimSpace(last), nil
}

func (l *LocalProvider) ChatTools(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1].Content
	return &ChatResult{Content: "[local-stub] " + strings.TrimSpace(last)}, nil
}

func (l *LocalProvider) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if audio != nil {
		_, _ = io.Copy(io.Discard, audio)
	}
	return fmt.Sprintf("[local-stub] transcript of %s", filename), nil
}

func (l *LocalProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("image generation requires an OpenAI API key")
}

func (l *LocalProvider) Name() string {
	return "local"
}

package ai

import (
	"context"
	"fmt"

	"github.com/v0xg/webmacro/internal/macro"
)

// Provider turns a recorded macro into a plain-language description
type Provider interface {
	Describe(ctx context.Context, m macro.Macro) (string, error)
}

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic", "":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

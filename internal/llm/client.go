// Package llm wraps the chat-completion providers behind a single interface.
//
// Two providers are supported: any OpenAI-compatible endpoint (OpenAI, Groq,
// or a self-hosted gateway via base_url) and Anthropic.
package llm

import (
	"context"
	"fmt"

	"github.com/brewcrew/barista/internal/config"
)

// Client produces a completion for a system instruction plus user prompt.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// New builds a Client for the configured provider.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

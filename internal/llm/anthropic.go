package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 512
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a client for the given API key and model.
func NewAnthropic(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Type: "text", Text: system},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		out.WriteString(block.Text)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic completion: empty response")
	}
	return out.String(), nil
}

var _ Client = (*AnthropicClient)(nil)

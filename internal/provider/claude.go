package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

// Claude completes requests through the Anthropic Messages API.
type Claude struct {
	model string
}

// NewClaude creates a Claude provider. Unknown model aliases fall back
// to haiku.
func NewClaude(model string) *Claude {
	return &Claude{model: model}
}

func (c *Claude) Name() string { return "claude-" + c.model }

func (c *Claude) Complete(ctx context.Context, req Request) (string, error) {
	client := anthropic.NewClient()

	modelID := claudeModels[c.model]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	var text string
	err := WithRetry(ctx, func() error {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(modelID),
			MaxTokens:   maxTokens,
			Temperature: anthropic.Float(req.Temperature),
			System: []anthropic.TextBlockParam{
				{Text: req.System},
			},
			Messages: messages,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retryable(fmt.Errorf("Claude API error: %w", err))
		}

		text = extractClaudeText(message)
		if text == "" {
			return retryable(errors.New("empty response from Claude"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func extractClaudeText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

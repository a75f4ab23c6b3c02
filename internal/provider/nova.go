package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

var novaModels = map[string]string{
	"nova-lite": "us.amazon.nova-2-lite-v1:0",
}

// Nova completes requests through the Bedrock Converse API.
type Nova struct {
	model  string
	client *bedrockruntime.Client
}

// NewNova creates a Nova provider using the default AWS config chain.
func NewNova(model string) (*Nova, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Nova{
		model:  model,
		client: bedrockruntime.NewFromConfig(cfg),
	}, nil
}

func (n *Nova) Name() string { return n.model }

func (n *Nova) Complete(ctx context.Context, req Request) (string, error) {
	modelID := novaModels[n.model]
	if modelID == "" {
		modelID = novaModels["nova-lite"]
	}

	maxTokens := int32(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 2048
	}

	messages := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role: role,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: m.Content},
			},
		})
	}

	var text string
	err := WithRetry(ctx, func() error {
		resp, err := n.client.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId: aws.String(modelID),
			System: []types.SystemContentBlock{
				&types.SystemContentBlockMemberText{Value: req.System},
			},
			Messages: messages,
			InferenceConfig: &types.InferenceConfiguration{
				MaxTokens:   aws.Int32(maxTokens),
				Temperature: aws.Float32(float32(req.Temperature)),
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retryable(fmt.Errorf("Bedrock Converse error: %w", err))
		}

		text = extractNovaText(resp)
		if text == "" {
			return retryable(errors.New("empty response from Bedrock"))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func extractNovaText(resp *bedrockruntime.ConverseOutput) string {
	if resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			return tb.Value
		}
	}
	return ""
}

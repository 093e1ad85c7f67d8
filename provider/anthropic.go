package provider

import (
	"context"
	"fmt"
	"strings"

	"genadapter/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	anthropicMaxTokens = 4096
	// Extended thinking rejects budgets below this value.
	anthropicMinThinkingBudget = 1024
)

// AnthropicClient implements Client using Anthropic's official Go SDK.
type AnthropicClient struct {
	client   *anthropic.Client
	model    anthropic.Model
	baseURL  string
	modality Modality
}

// NewAnthropicClient creates a new Anthropic client.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: model to use (default: "claude-sonnet-4-5-20250929")
//   - modality: ModalityVision enables image blocks
func NewAnthropicClient(baseURL, apiKey, model string, modality Modality) (*AnthropicClient, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is required", ErrCredential)
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:   &client,
		model:    anthropicModel,
		baseURL:  baseURL,
		modality: modality,
	}, nil
}

// Invoke implements Client.
//
// A thinking budget of at least 1024 turns on extended thinking with that
// many budget tokens; smaller budgets leave it off. Thinking blocks are not
// part of the returned text.
func (c *AnthropicClient) Invoke(ctx context.Context, req Request) (string, error) {
	blocks, err := c.contentBlocks(ctx, req)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.ThinkingBudget >= anthropicMinThinkingBudget {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
		// max_tokens must exceed the thinking budget
		params.MaxTokens = int64(req.ThinkingBudget) + anthropicMaxTokens
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: Anthropic request failed: %w", ErrBackendInvocation, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Anthropic] %s message from %s: stop_reason=%s", c.modality, c.model, msg.StopReason)
	}
	return b.String(), nil
}

func (c *AnthropicClient) contentBlocks(ctx context.Context, req Request) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if c.modality == ModalityVision {
		for _, ref := range req.Attachments {
			img, err := loadImage(ctx, ref)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, img.base64()))
		}
	}
	// images first, then the instruction
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))
	return blocks, nil
}

// Ping implements Pinger with a one-token request, since Anthropic has no
// health endpoint.
func (c *AnthropicClient) Ping(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: Anthropic ping failed: %w", ErrBackendInvocation, err)
	}
	return nil
}

package provider

import (
	"context"
	"fmt"

	"genadapter/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient serves every source that speaks the OpenAI chat completions
// dialect (OpenAI, OpenRouter, DeepSeek, Qwen, Doubao, GLM, ...).
type OpenAIClient struct {
	client   openai.Client
	model    string
	baseURL  string
	modality Modality
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
//
// Parameters:
//   - baseURL: API base URL (default: "https://api.openai.com/v1")
//   - apiKey: API key (required)
//   - model: model name (required)
//   - modality: ModalityVision enables image attachments
func NewOpenAIClient(baseURL, apiKey, model string, modality Modality) (*OpenAIClient, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI-compatible API key is required", ErrCredential)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrConfiguration)
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIClient{
		client:   client,
		model:    model,
		baseURL:  baseURL,
		modality: modality,
	}, nil
}

// Invoke implements Client with a single non-streaming completion.
//
// The thinking budget has no portable meaning across OpenAI-compatible
// servers and is not sent.
func (c *OpenAIClient) Invoke(ctx context.Context, req Request) (string, error) {
	message, err := c.userMessage(ctx, req)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{message},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: OpenAI-compatible completion failed: %w", ErrBackendInvocation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: OpenAI-compatible completion returned no choices", ErrBackendInvocation)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[OpenAI] %s completion from %s: finish_reason=%s", c.modality, c.model, resp.Choices[0].FinishReason)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) userMessage(ctx context.Context, req Request) (openai.ChatCompletionMessageParamUnion, error) {
	if c.modality != ModalityVision || len(req.Attachments) == 0 {
		return openai.UserMessage(req.Prompt), nil
	}

	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, ref := range req.Attachments {
		imageURL := ref
		// remote https images are passed by reference
		if !isHTTPSImage(ref) {
			img, err := loadImage(ctx, ref)
			if err != nil {
				return openai.ChatCompletionMessageParamUnion{}, err
			}
			imageURL = img.dataURI()
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    imageURL,
			Detail: "auto",
		}))
	}
	return openai.UserMessage(parts), nil
}

// Ping implements Pinger by listing models.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: OpenAI-compatible ping failed: %w", ErrBackendInvocation, err)
	}
	return nil
}

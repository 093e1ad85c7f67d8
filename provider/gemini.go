package provider

import (
	"context"
	"fmt"
	"math"

	"genadapter/config"

	"google.golang.org/genai"
)

// GeminiClient implements Client using the Google Gen AI SDK against the
// Gemini API backend.
type GeminiClient struct {
	client   *genai.Client
	model    string
	modality Modality
}

// NewGeminiClient creates a Gemini client. baseURL may be empty to use the
// SDK default endpoint.
func NewGeminiClient(baseURL, apiKey, model string, modality Modality) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", ErrCredential)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %w", ErrConfiguration, err)
	}

	return &GeminiClient{
		client:   client,
		model:    model,
		modality: modality,
	}, nil
}

// Invoke implements Client. A positive thinking budget is passed to the model
// as its thinking token budget.
func (c *GeminiClient) Invoke(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if c.modality == ModalityVision {
		for _, ref := range req.Attachments {
			img, err := loadImage(ctx, ref)
			if err != nil {
				return "", err
			}
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
		}
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.ThinkingBudget > 0 {
		budget := geminiThinkingBudget(req.ThinkingBudget)
		cfg = &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: Gemini request failed: %w", ErrBackendInvocation, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Gemini] %s response from %s: %d candidate(s)", c.modality, c.model, len(resp.Candidates))
	}
	return resp.Text(), nil
}

// geminiThinkingBudget clamps n to int32. Negative budgets mean "dynamic" to
// Gemini, so an overflow must not wrap.
func geminiThinkingBudget(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}

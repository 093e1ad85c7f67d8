package provider

import (
	"context"
	"fmt"

	"genadapter/config"
	"genadapter/ollama"
)

// OllamaClient wraps ollama.Client to implement Client for a local server.
type OllamaClient struct {
	client   *ollama.Client
	modality Modality
}

// NewOllamaClient creates an Ollama client.
//
// Parameters:
//   - baseURL: The Ollama server URL (default: "http://localhost:11434")
//   - model: The model name (default: "llama3.2-vision:latest")
//   - modality: ModalityVision sends attachments as images
//
// Returns an error if the baseURL is invalid.
func NewOllamaClient(baseURL, model string, modality Modality) (*OllamaClient, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Ollama client: %w", ErrConfiguration, err)
	}

	if modality == ModalityVision && !ollama.SupportsVision(client.GetModel()) && config.DebugLog != nil {
		config.DebugLog.Printf("[Ollama] Model '%s' is not a known vision model; image requests may fail", client.GetModel())
	}

	return &OllamaClient{
		client:   client,
		modality: modality,
	}, nil
}

// Invoke implements Client. Ollama has no thinking budget, so the hint is
// ignored.
func (c *OllamaClient) Invoke(ctx context.Context, req Request) (string, error) {
	var images [][]byte
	if c.modality == ModalityVision {
		for _, ref := range req.Attachments {
			img, err := loadImage(ctx, ref)
			if err != nil {
				return "", err
			}
			images = append(images, img.Data)
		}
	}

	out, err := c.client.Generate(ctx, req.Prompt, images)
	if err != nil {
		return "", fmt.Errorf("%w: Ollama request failed: %w", ErrBackendInvocation, err)
	}
	return out, nil
}

// Ping implements Pinger.
func (c *OllamaClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: Ollama server at %s is not reachable: %w", ErrBackendInvocation, c.client.BaseURL(), err)
	}
	return nil
}

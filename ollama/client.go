package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2-vision:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL: %q", baseURL)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Generate sends a single user message, with optional raw images, and waits
// for the complete reply.
func (c *Client) Generate(ctx context.Context, prompt string, images [][]byte) (string, error) {
	msg := api.Message{
		Role:    "user",
		Content: prompt,
	}
	for _, img := range images {
		msg.Images = append(msg.Images, api.ImageData(img))
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{msg},
		Stream:   func(b bool) *bool { return &b }(false),
	}

	// the callback may still be invoked more than once
	var b strings.Builder
	respFunc := func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}

// visionFamilies lists model families known to accept images.
var visionFamilies = []string{
	"llava",
	"llama3.2-vision",
	"qwen2.5vl",
	"qwen3-vl",
	"gemma3",
	"minicpm-v",
	"moondream",
	"granite3.2-vision",
	"mistral-small3",
}

// SupportsVision reports whether modelName belongs to a family known to
// accept image input. Unknown models return false; callers may still try.
func SupportsVision(modelName string) bool {
	name := strings.ToLower(modelName)
	for _, family := range visionFamilies {
		if strings.HasPrefix(name, family) {
			return true
		}
	}
	return false
}

// Package provider exposes a uniform text and vision generation interface
// over a multi-model backend.
//
// A backend client is bound to a (source, model, modality) triple and is
// assumed to be expensive to build, so GenerationProvider builds the text
// client once when it is constructed and the vision client lazily, the first
// time an image-conditioned request arrives. Every generated string passes
// through StripThinkTags before it reaches the caller.
//
// # Collaborators
//
// The package talks to the outside world through three narrow interfaces:
//   - ClientFactory builds a Client for an Identity and a Modality
//   - CredentialResolver makes sure a source's credentials are present
//     before any client is built
//   - Recorder (optional) receives one Event per generation
//
// NewSDKFactory is the production ClientFactory. It dispatches on the source
// name to the OpenAI, Anthropic, Gemini or Ollama SDKs.
//
// # Usage
//
//	p, err := provider.NewGenerationProvider("deepseek", "deepseek-chat",
//	    provider.WithCredentialResolver(resolver),
//	)
//	if err != nil {
//	    // configuration, credential or backend error
//	}
//	text, err := p.GenerateText(ctx, "Summarize this slide")
//	caption, err := p.GenerateWithImage(ctx, "Describe the style", "slide.png")
package provider

import (
	"context"
	"time"
)

// Modality identifies the kind of client a slot holds.
type Modality string

const (
	// ModalityText is a text-only language model client.
	ModalityText Modality = "llm"
	// ModalityVision is an image-conditioned (vision-language) client.
	ModalityVision Modality = "vlm"
)

func (m Modality) String() string {
	switch m {
	case ModalityText:
		return "text"
	case ModalityVision:
		return "vision"
	default:
		return string(m)
	}
}

// Identity names the backend catalog entry a provider instantiates.
type Identity struct {
	Source string
	Model  string
}

// Request is a single generation call as seen by a Client.
type Request struct {
	Prompt string
	// Attachments holds image references (paths, https URLs or data URIs).
	Attachments []string
	// ThinkingBudget is an opaque hint; each backend decides what it means.
	ThinkingBudget int
}

// Client is a constructed backend handle bound to one Identity and Modality.
type Client interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// Pinger is implemented by clients that can check backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientFactory builds backend clients.
type ClientFactory interface {
	// Supports reports whether the factory can build clients for source.
	Supports(source string) bool
	// NewClient builds a client. It is only called after the source's
	// credentials have been resolved.
	NewClient(id Identity, modality Modality) (Client, error)
}

// CredentialResolver makes sure the credentials a source needs are present.
type CredentialResolver interface {
	Ensure(source, namespace string) error
}

// Event describes one finished generation call.
type Event struct {
	RequestID      string
	Source         string
	Model          string
	Modality       Modality
	ThinkingBudget int
	PromptChars    int
	// ImageRef is the first attachment. Data URIs are truncated.
	ImageRef       string
	Duration       time.Duration
	Err            error
}

// Recorder receives generation events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// MultiRecorder fans an Event out to every recorder in order. All recorders
// are called; the first error is returned.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, ev Event) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

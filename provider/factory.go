package provider

import (
	"fmt"
	"os"
	"strings"

	"genadapter/config"
)

// KeySource looks up API keys by source name.
type KeySource interface {
	Get(source string) string
}

// envKeys reads GENADAPTER_<SOURCE>_API_KEY from the environment.
type envKeys struct{}

func (envKeys) Get(source string) string {
	return os.Getenv("GENADAPTER_" + strings.ToUpper(source) + "_API_KEY")
}

// SDKFactory is the production ClientFactory. It builds OpenAI-compatible,
// Anthropic, Gemini and Ollama clients depending on the source.
type SDKFactory struct {
	keys     KeySource
	baseURLs map[string]string
}

// SDKOption configures an SDKFactory.
type SDKOption func(*SDKFactory)

// WithBaseURL overrides the catalog base URL for one source.
func WithBaseURL(source, baseURL string) SDKOption {
	return func(f *SDKFactory) {
		if baseURL != "" {
			f.baseURLs[strings.ToLower(source)] = baseURL
		}
	}
}

// NewSDKFactory creates a factory that reads API keys from keys. A nil keys
// falls back to GENADAPTER_<SOURCE>_API_KEY environment variables.
func NewSDKFactory(keys KeySource, opts ...SDKOption) *SDKFactory {
	if keys == nil {
		keys = envKeys{}
	}
	f := &SDKFactory{keys: keys, baseURLs: make(map[string]string)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// defaultFactory is used when no factory option was given. A resolver that
// also exposes keys (config.NamespaceResolver does) feeds the factory.
func defaultFactory(r CredentialResolver) ClientFactory {
	if ks, ok := r.(KeySource); ok {
		return NewSDKFactory(ks)
	}
	return NewSDKFactory(nil)
}

// Supports implements ClientFactory.
func (f *SDKFactory) Supports(source string) bool {
	_, ok := LookupSource(source)
	return ok
}

// NewClient implements ClientFactory.
//
// Returns an error wrapping ErrConfiguration if the source is unknown, and
// ErrCredential if a key is required but absent.
func (f *SDKFactory) NewClient(id Identity, modality Modality) (Client, error) {
	info, ok := LookupSource(id.Source)
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrConfiguration, id.Source)
	}

	baseURL := info.BaseURL
	if override, ok := f.baseURLs[info.Name]; ok {
		baseURL = override
	}
	model := id.Model
	if model == "" {
		model = info.DefaultModel
	}

	apiKey := f.keys.Get(info.Name)
	if info.RequiresKey && apiKey == "" {
		return nil, fmt.Errorf("%w: no API key for source %q", ErrCredential, info.Name)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Building %s client for %s/%s (backend: %s)", modality, info.Name, model, info.Kind)
	}

	switch info.Kind {
	case BackendOpenAI:
		return NewOpenAIClient(baseURL, apiKey, model, modality)
	case BackendAnthropic:
		return NewAnthropicClient(baseURL, apiKey, model, modality)
	case BackendGemini:
		return NewGeminiClient(baseURL, apiKey, model, modality)
	case BackendOllama:
		return NewOllamaClient(baseURL, model, modality)
	default:
		return nil, fmt.Errorf("%w: unknown backend kind: %s", ErrConfiguration, info.Kind)
	}
}

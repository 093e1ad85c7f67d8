package provider

import (
	"fmt"

	"genadapter/config"
)

// NewFromConfig builds a GenerationProvider for the configured default
// source and model.
//
// It wires:
//   - a config.NamespaceResolver over cfg.CredentialStore, using the source
//     catalog to decide which sources need a key
//   - an SDKFactory reading keys from the same store, with any base URL
//     overrides from config.toml
//   - cfg.Namespace as the credential namespace
//
// Extra options (a Recorder, a test factory) are applied last and win.
func NewFromConfig(cfg *config.Config, opts ...Option) (*GenerationProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfiguration)
	}

	store := cfg.CredentialStore
	if store == nil {
		store = config.NewCredentialStore(config.SecurityPlainText, "")
	}
	resolver := config.NewNamespaceResolver(store, SourceRequiresKey)

	var sdkOpts []SDKOption
	for source, baseURL := range cfg.SourceBaseURLs {
		sdkOpts = append(sdkOpts, WithBaseURL(source, baseURL))
	}

	base := []Option{
		WithCredentialResolver(resolver),
		WithFactory(NewSDKFactory(resolver, sdkOpts...)),
	}
	if cfg.Namespace != "" {
		base = append(base, WithNamespace(cfg.Namespace))
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Initializing from config: source=%s model=%s", cfg.Source(), cfg.Model())
	}

	return NewGenerationProvider(cfg.Source(), cfg.Model(), append(base, opts...)...)
}

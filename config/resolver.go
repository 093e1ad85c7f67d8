package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingCredential is returned by NamespaceResolver.Ensure when no API
// key can be found for a source.
var ErrMissingCredential = errors.New("missing credential")

// NamespaceResolver makes sure a source's API key is present in a
// CredentialStore before a backend client is built.
//
// Lookup order for source "qwen" in namespace "BANANA":
//  1. BANANA_QWEN_API_KEY
//  2. GENADAPTER_QWEN_API_KEY
//  3. the "qwen" entry already in the store
//
// A key found in the environment is registered in the store, so clients
// built afterwards read it from there.
type NamespaceResolver struct {
	Store *CredentialStore
	// RequiresKey reports whether a source needs an API key at all. When nil
	// every source except "ollama" does.
	RequiresKey func(source string) bool
}

// NewNamespaceResolver creates a resolver backed by store.
func NewNamespaceResolver(store *CredentialStore, requiresKey func(source string) bool) *NamespaceResolver {
	if store == nil {
		store = NewCredentialStore(SecurityPlainText, "")
	}
	return &NamespaceResolver{Store: store, RequiresKey: requiresKey}
}

// NamespaceEnvVar returns the environment variable holding source's key in
// namespace, e.g. BANANA_DEEPSEEK_API_KEY.
func NamespaceEnvVar(namespace, source string) string {
	return envName(namespace) + "_" + envName(source) + "_API_KEY"
}

func envName(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}

func (r *NamespaceResolver) requiresKey(source string) bool {
	if r.RequiresKey != nil {
		return r.RequiresKey(source)
	}
	return normalizeSource(source) != "ollama"
}

// Ensure implements the provider credential resolver contract.
func (r *NamespaceResolver) Ensure(source, namespace string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("%w: empty source", ErrMissingCredential)
	}
	if !r.requiresKey(source) {
		return nil
	}

	candidates := []string{NamespaceEnvVar("GENADAPTER", source)}
	if namespace != "" {
		candidates = append([]string{NamespaceEnvVar(namespace, source)}, candidates...)
	}
	for _, name := range candidates {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			if err := r.Store.Set(source, key); err != nil {
				return fmt.Errorf("failed to register key for %s: %w", source, err)
			}
			if DebugLog != nil {
				DebugLog.Printf("[Credentials] Registered %s key from %s", source, name)
			}
			return nil
		}
	}

	if r.Store.Get(source) != "" {
		return nil
	}

	return fmt.Errorf("%w: no API key for source %q (set %s or add it to credentials)",
		ErrMissingCredential, source, candidates[0])
}

// Get exposes the store's keys so the resolver can feed a client factory.
func (r *NamespaceResolver) Get(source string) string {
	return r.Store.Get(source)
}

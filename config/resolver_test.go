package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceEnvVar(t *testing.T) {
	tests := []struct {
		namespace string
		source    string
		want      string
	}{
		{"BANANA", "qwen", "BANANA_QWEN_API_KEY"},
		{"banana", "DeepSeek", "BANANA_DEEPSEEK_API_KEY"},
		{"my-team", "silicon.flow", "MY_TEAM_SILICON_FLOW_API_KEY"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NamespaceEnvVar(tt.namespace, tt.source))
	}
}

func TestResolverPrefersNamespaceVariable(t *testing.T) {
	t.Setenv("BANANA_QWEN_API_KEY", "sk-namespace")
	t.Setenv("GENADAPTER_QWEN_API_KEY", "sk-global")

	store := NewCredentialStore(SecurityPlainText, "")
	r := NewNamespaceResolver(store, nil)

	require.NoError(t, r.Ensure("qwen", "BANANA"))
	assert.Equal(t, "sk-namespace", store.Get("qwen"))
	assert.Equal(t, "sk-namespace", r.Get("QWEN"))
}

func TestResolverFallsBackToGlobalVariable(t *testing.T) {
	t.Setenv("STAGING_GLM_API_KEY", "")
	t.Setenv("GENADAPTER_GLM_API_KEY", "sk-global")

	store := NewCredentialStore(SecurityPlainText, "")
	r := NewNamespaceResolver(store, nil)

	require.NoError(t, r.Ensure("glm", "STAGING"))
	assert.Equal(t, "sk-global", store.Get("glm"))
}

func TestResolverUsesStoredKey(t *testing.T) {
	t.Setenv("BANANA_KIMI_API_KEY", "")
	t.Setenv("GENADAPTER_KIMI_API_KEY", "")

	store := NewCredentialStore(SecurityPlainText, "")
	require.NoError(t, store.Set("kimi", "sk-stored"))
	r := NewNamespaceResolver(store, nil)

	require.NoError(t, r.Ensure("kimi", "BANANA"))
	assert.Equal(t, "sk-stored", store.Get("kimi"))
}

func TestResolverMissingKey(t *testing.T) {
	t.Setenv("BANANA_DOUBAO_API_KEY", "")
	t.Setenv("GENADAPTER_DOUBAO_API_KEY", "")

	r := NewNamespaceResolver(nil, nil)

	err := r.Ensure("doubao", "BANANA")
	require.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "BANANA_DOUBAO_API_KEY")

	// a key supplied later is picked up by the next attempt
	t.Setenv("BANANA_DOUBAO_API_KEY", "sk-late")
	require.NoError(t, r.Ensure("doubao", "BANANA"))
}

func TestResolverKeylessSources(t *testing.T) {
	r := NewNamespaceResolver(nil, func(source string) bool { return source != "local" })
	assert.NoError(t, r.Ensure("local", "BANANA"))

	// default rule: only ollama runs without a key
	r = NewNamespaceResolver(nil, nil)
	assert.NoError(t, r.Ensure("Ollama", "BANANA"))
}

func TestResolverEmptySource(t *testing.T) {
	r := NewNamespaceResolver(nil, nil)
	assert.ErrorIs(t, r.Ensure(" ", "BANANA"), ErrMissingCredential)
}

func TestResolverEmptyNamespace(t *testing.T) {
	t.Setenv("GENADAPTER_OPENAI_API_KEY", "sk-openai")

	store := NewCredentialStore(SecurityPlainText, "")
	r := NewNamespaceResolver(store, nil)

	require.NoError(t, r.Ensure("openai", ""))
	assert.Equal(t, "sk-openai", store.Get("openai"))
}

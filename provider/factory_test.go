package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys map[string]string

func (k staticKeys) Get(source string) string { return k[source] }

func TestSDKFactoryNewClient(t *testing.T) {
	f := NewSDKFactory(staticKeys{
		"deepseek":  "sk-deepseek",
		"qwen":      "sk-qwen",
		"anthropic": "sk-ant",
		"gemini":    "gm-key",
	})

	tests := []struct {
		name     string
		id       Identity
		modality Modality
		wantType any
		wantErr  error
	}{
		{name: "deepseek text", id: Identity{Source: "deepseek", Model: "deepseek-chat"}, modality: ModalityText, wantType: &OpenAIClient{}},
		{name: "qwen vision", id: Identity{Source: "QWEN", Model: "qwen-vl-max"}, modality: ModalityVision, wantType: &OpenAIClient{}},
		{name: "anthropic", id: Identity{Source: "anthropic"}, modality: ModalityText, wantType: &AnthropicClient{}},
		{name: "gemini", id: Identity{Source: "gemini"}, modality: ModalityVision, wantType: &GeminiClient{}},
		{name: "ollama needs no key", id: Identity{Source: "ollama", Model: "llava"}, modality: ModalityVision, wantType: &OllamaClient{}},
		{name: "missing key", id: Identity{Source: "glm", Model: "glm-4v"}, modality: ModalityText, wantErr: ErrCredential},
		{name: "unknown source", id: Identity{Source: "nowhere", Model: "x"}, modality: ModalityText, wantErr: ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.NewClient(tt.id, tt.modality)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, c)
		})
	}
}

func TestSDKFactoryDefaultModel(t *testing.T) {
	f := NewSDKFactory(staticKeys{"deepseek": "sk"})

	c, err := f.NewClient(Identity{Source: "deepseek"}, ModalityText)
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", c.(*OpenAIClient).model)
}

func TestSDKFactoryBaseURLOverride(t *testing.T) {
	f := NewSDKFactory(staticKeys{"qwen": "sk"}, WithBaseURL("Qwen", "http://proxy.internal/v1"), WithBaseURL("glm", ""))

	c, err := f.NewClient(Identity{Source: "qwen", Model: "qwen-plus"}, ModalityText)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.internal/v1", c.(*OpenAIClient).baseURL)

	_, overridden := f.baseURLs["glm"]
	assert.False(t, overridden)
}

func TestSDKFactorySupports(t *testing.T) {
	f := NewSDKFactory(nil)

	for _, source := range Sources() {
		assert.True(t, f.Supports(source), source)
	}
	assert.False(t, f.Supports("nowhere"))
	assert.False(t, f.Supports(""))
}

func TestEnvKeys(t *testing.T) {
	t.Setenv("GENADAPTER_KIMI_API_KEY", "sk-kimi")

	assert.Equal(t, "sk-kimi", envKeys{}.Get("kimi"))
	assert.Empty(t, envKeys{}.Get("minimax"))
}

type keyedResolver struct{ staticKeys }

func (keyedResolver) Ensure(source, namespace string) error { return nil }

type plainResolver struct{}

func (plainResolver) Ensure(source, namespace string) error { return nil }

func TestDefaultFactoryUsesResolverKeys(t *testing.T) {
	f := defaultFactory(keyedResolver{staticKeys{"openai": "sk-from-store"}}).(*SDKFactory)
	assert.Equal(t, "sk-from-store", f.keys.Get("openai"))

	f = defaultFactory(plainResolver{}).(*SDKFactory)
	assert.IsType(t, envKeys{}, f.keys)

	f = defaultFactory(nil).(*SDKFactory)
	assert.IsType(t, envKeys{}, f.keys)
}

func TestSourceCatalog(t *testing.T) {
	assert.Equal(t, BackendOpenAI, MapSourceToKind("DeepSeek"))
	assert.Equal(t, BackendAnthropic, MapSourceToKind("anthropic"))
	assert.Equal(t, BackendKind("custom"), MapSourceToKind("custom"))

	assert.False(t, SourceRequiresKey("ollama"))
	assert.True(t, SourceRequiresKey("qwen"))
	assert.True(t, SourceRequiresKey("unknown"))

	names := Sources()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "siliconflow")

	info, ok := LookupSource("  Gemini ")
	require.True(t, ok)
	assert.Equal(t, "gemini", info.Name)
}

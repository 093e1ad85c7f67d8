package provider

import (
	"sort"
	"strings"
)

// BackendKind identifies which SDK serves a source.
type BackendKind string

const (
	BackendOpenAI    BackendKind = "openai"
	BackendAnthropic BackendKind = "anthropic"
	BackendGemini    BackendKind = "gemini"
	BackendOllama    BackendKind = "ollama"
)

// SourceInfo describes one entry of the source catalog.
type SourceInfo struct {
	Name         string
	Kind         BackendKind
	BaseURL      string
	DefaultModel string
	// RequiresKey is false for local backends that need no API key.
	RequiresKey bool
}

// Most hosted sources speak the OpenAI chat completions dialect and only
// differ in base URL.
var sourceCatalog = map[string]SourceInfo{
	"openai": {
		Name: "openai", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-4o-mini",
	},
	"openrouter": {
		Name: "openrouter", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://openrouter.ai/api/v1", DefaultModel: "meta-llama/llama-3.2-90b-vision-instruct",
	},
	"deepseek": {
		Name: "deepseek", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://api.deepseek.com/v1", DefaultModel: "deepseek-chat",
	},
	"qwen": {
		Name: "qwen", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", DefaultModel: "qwen-plus",
	},
	"doubao": {
		Name: "doubao", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://ark.cn-beijing.volces.com/api/v3", DefaultModel: "doubao-seed-1-6-250615",
	},
	"glm": {
		Name: "glm", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://open.bigmodel.cn/api/paas/v4", DefaultModel: "glm-4.5",
	},
	"siliconflow": {
		Name: "siliconflow", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://api.siliconflow.cn/v1", DefaultModel: "Qwen/Qwen2.5-VL-72B-Instruct",
	},
	"minimax": {
		Name: "minimax", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://api.minimax.chat/v1", DefaultModel: "MiniMax-M1",
	},
	"kimi": {
		Name: "kimi", Kind: BackendOpenAI, RequiresKey: true,
		BaseURL: "https://api.moonshot.cn/v1", DefaultModel: "kimi-k2-0905-preview",
	},
	"anthropic": {
		Name: "anthropic", Kind: BackendAnthropic, RequiresKey: true,
		BaseURL: "https://api.anthropic.com", DefaultModel: "claude-sonnet-4-5-20250929",
	},
	"gemini": {
		Name: "gemini", Kind: BackendGemini, RequiresKey: true,
		DefaultModel: "gemini-2.5-flash",
	},
	"ollama": {
		Name: "ollama", Kind: BackendOllama, RequiresKey: false,
		BaseURL: "http://localhost:11434", DefaultModel: "llama3.2-vision:latest",
	},
}

// LookupSource returns the catalog entry for source. Lookup is case
// insensitive.
func LookupSource(source string) (SourceInfo, bool) {
	info, ok := sourceCatalog[strings.ToLower(strings.TrimSpace(source))]
	return info, ok
}

// MapSourceToKind converts a source name to the backend kind that serves it.
// Unknown sources are returned as-is; the factory rejects them.
func MapSourceToKind(source string) BackendKind {
	if info, ok := LookupSource(source); ok {
		return info.Kind
	}
	return BackendKind(source)
}

// SourceRequiresKey reports whether source needs an API key. Unknown sources
// are assumed to need one.
func SourceRequiresKey(source string) bool {
	info, ok := LookupSource(source)
	return !ok || info.RequiresKey
}

// Sources lists the catalog's source names in sorted order.
func Sources() []string {
	names := make([]string, 0, len(sourceCatalog))
	for name := range sourceCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

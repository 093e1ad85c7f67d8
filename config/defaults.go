package config

import "fmt"

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: defaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Namespace: "BANANA",
		Generation: GenerationConfig{
			DefaultSource:        "deepseek",
			DefaultModel:         "deepseek-chat",
			TextThinkingBudget:   1000,
			VisionThinkingBudget: 0,
		},
		Security: SecurityConfig{
			Method: string(SecurityPlainText),
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return fmt.Sprintf(`# genadapter System Configuration
# Location: %s
# This file uses TOML format: https://toml.io

# Directory where user config, credentials and history are stored
data_directory = %q
`, GetSettingsFilePath(), defaultDataDir())
}

func GenerateUserConfigTemplate() string {
	return `# genadapter User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Credential namespace. Keys are looked up as <NAMESPACE>_<SOURCE>_API_KEY
namespace = "BANANA"

[generation]
# Backend source: deepseek, qwen, doubao, glm, siliconflow, minimax, kimi,
# openai, openrouter, anthropic, gemini or ollama
default_source = "deepseek"
default_model = "deepseek-chat"

# Opaque hints forwarded to the backend
text_thinking_budget = 1000
vision_thinking_budget = 0

[security]
# "plaintext" stores credentials.toml (0600)
# "ssh_key" stores credentials.enc encrypted with a key derived from an SSH key
method = "plaintext"
# ssh_key_path = "~/.ssh/genadapter_ed25519"

[history]
# Record every generation in history.db
enabled = true

[metrics]
# Serve Prometheus metrics on this address while a command runs,
# e.g. "127.0.0.1:9464". Empty disables the endpoint.
listen = ""

# Per-source base URL overrides
# [sources.ollama]
# base_url = "http://gpu-box:11434"
`
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("GENADAPTER_DATA_DIR", dataDir)
	t.Setenv("GENADAPTER_METRICS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BANANA", cfg.Namespace)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "deepseek", cfg.Source())
	assert.Equal(t, "deepseek-chat", cfg.Model())
	assert.Equal(t, 1000, cfg.TextThinkingBudget)
	assert.Equal(t, 0, cfg.VisionThinkingBudget)
	assert.True(t, cfg.HistoryEnabled)
	assert.Equal(t, dataDir, cfg.DataDir())
	require.NotNil(t, cfg.CredentialStore)
	assert.Equal(t, SecurityPlainText, cfg.CredentialStore.GetMethod())

	// first run writes the commented template
	assert.FileExists(t, filepath.Join(dataDir, "config.toml"))
	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadUserConfigAndEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("GENADAPTER_DATA_DIR", dataDir)

	userCfg := `
namespace = "STAGING"

[generation]
default_source = "qwen"
default_model = "qwen-vl-max"
text_thinking_budget = 2048
vision_thinking_budget = 512

[history]
enabled = false

[metrics]
listen = "127.0.0.1:9464"

[sources.Ollama]
base_url = "http://gpu-box:11434"
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(userCfg), 0600))
	t.Setenv("GENADAPTER_MODEL", "qwen-max")
	t.Setenv("GENADAPTER_VISION_THINKING_BUDGET", "not-a-number")
	t.Setenv("GENADAPTER_METRICS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "STAGING", cfg.Namespace)
	assert.Equal(t, "qwen", cfg.Source())
	assert.Equal(t, "qwen-max", cfg.Model())
	assert.Equal(t, 2048, cfg.TextThinkingBudget)
	assert.Equal(t, 512, cfg.VisionThinkingBudget)
	assert.False(t, cfg.HistoryEnabled)
	assert.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	assert.Equal(t, "http://gpu-box:11434", cfg.BaseURL("ollama"))
}

func TestLoadSystemConfigFromSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GENADAPTER_DATA_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	// first run creates settings.toml pointing at the default data directory
	cfg, err := Load()
	require.NoError(t, err)
	assert.FileExists(t, GetSettingsFilePath())
	assert.Equal(t, filepath.Join(home, ".local", "share", "genadapter"), cfg.DataDir())
	assert.Equal(t, filepath.Join(home, ".config", "genadapter", "settings.toml"), GetSettingsFilePath())
}

func TestXDGDirectories(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")

	assert.Equal(t, "/xdg/config/genadapter", GetConfigDir())
	assert.Equal(t, "/xdg/data/genadapter", DefaultSystemConfig().DataDirectory)

	// relative values are ignored
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_CONFIG_HOME", "relative")
	assert.Equal(t, "/home/tester/.config/genadapter", GetConfigDir())
}

func TestLoadSSHKeyMethodWithoutKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("GENADAPTER_DATA_DIR", dataDir)

	userCfg := "[security]\nmethod = \"ssh_key\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(userCfg), 0600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSH key")
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("GENADAPTER_TEST_DIR", "/srv/data")

	assert.Equal(t, "/home/tester/.local/share/genadapter", ExpandPath("~/.local/share/genadapter"))
	assert.Equal(t, "/srv/data/history", ExpandPath("$GENADAPTER_TEST_DIR/history"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/home/tester", ExpandPath("~"))
}

func TestInitDebugLog(t *testing.T) {
	t.Cleanup(func() {
		Debug = false
		DebugLog = nil
	})

	dir := t.TempDir()
	t.Setenv("GENADAPTER_DEBUG", "")
	InitDebugLog(dir)
	assert.Nil(t, DebugLog)

	t.Setenv("GENADAPTER_DEBUG", "1")
	InitDebugLog(dir)
	require.NotNil(t, DebugLog)
	assert.True(t, Debug)
	assert.FileExists(t, filepath.Join(dir, "debug.log"))
}

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type SourceConfig struct {
	BaseURL string `toml:"base_url"`
}

type GenerationConfig struct {
	DefaultSource        string `toml:"default_source"`
	DefaultModel         string `toml:"default_model"`
	TextThinkingBudget   int    `toml:"text_thinking_budget"`
	VisionThinkingBudget int    `toml:"vision_thinking_budget"`
}

type SecurityConfig struct {
	Method     string `toml:"method"`
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

// MetricsConfig enables the Prometheus endpoint while a command runs.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

type UserConfig struct {
	Namespace  string                  `toml:"namespace"`
	Generation GenerationConfig        `toml:"generation"`
	Security   SecurityConfig          `toml:"security"`
	History    HistoryConfig           `toml:"history"`
	Metrics    MetricsConfig           `toml:"metrics"`
	Sources    map[string]SourceConfig `toml:"sources,omitempty"`
}

type Config struct {
	DataDirectory        string
	Namespace            string
	DefaultSource        string
	DefaultModel         string
	TextThinkingBudget   int
	VisionThinkingBudget int
	HistoryEnabled       bool
	MetricsAddr          string
	SourceBaseURLs       map[string]string
	CredentialStore      *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) Source() string {
	return c.DefaultSource
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// BaseURL returns the configured base URL override for source, or "".
func (c *Config) BaseURL(source string) string {
	return c.SourceBaseURLs[strings.ToLower(source)]
}

func (c *Config) applyUserConfig(u *UserConfig) {
	if u.Namespace != "" {
		c.Namespace = u.Namespace
	}
	if u.Generation.DefaultSource != "" {
		c.DefaultSource = u.Generation.DefaultSource
	}
	if u.Generation.DefaultModel != "" {
		c.DefaultModel = u.Generation.DefaultModel
	}
	c.TextThinkingBudget = u.Generation.TextThinkingBudget
	c.VisionThinkingBudget = u.Generation.VisionThinkingBudget
	c.HistoryEnabled = u.History.Enabled
	c.MetricsAddr = u.Metrics.Listen
	for name, src := range u.Sources {
		if src.BaseURL != "" {
			c.SourceBaseURLs[strings.ToLower(name)] = src.BaseURL
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if source := os.Getenv("GENADAPTER_SOURCE"); source != "" {
		c.DefaultSource = source
	}
	if model := os.Getenv("GENADAPTER_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("GENADAPTER_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if addr := os.Getenv("GENADAPTER_METRICS_ADDR"); addr != "" {
		c.MetricsAddr = addr
	}
	if ns := os.Getenv("GENADAPTER_NAMESPACE"); ns != "" {
		c.Namespace = ns
	}
	if budget := os.Getenv("GENADAPTER_TEXT_THINKING_BUDGET"); budget != "" {
		if n, err := strconv.Atoi(budget); err == nil {
			c.TextThinkingBudget = n
		}
	}
	if budget := os.Getenv("GENADAPTER_VISION_THINKING_BUDGET"); budget != "" {
		if n, err := strconv.Atoi(budget); err == nil {
			c.VisionThinkingBudget = n
		}
	}
}

func CheckDebug() bool {
	debug := os.Getenv("GENADAPTER_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: may contain request metadata
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (GENADAPTER_DEBUG=%s) ===", os.Getenv("GENADAPTER_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads settings.toml and <data_dir>/config.toml, creating defaults on
// first run, then applies GENADAPTER_* environment overrides and loads the
// credential store.
func Load() (*Config, error) {
	defaults := DefaultUserConfig()
	cfg := &Config{
		DataDirectory:        DefaultSystemConfig().DataDirectory,
		Namespace:            defaults.Namespace,
		DefaultSource:        defaults.Generation.DefaultSource,
		DefaultModel:         defaults.Generation.DefaultModel,
		TextThinkingBudget:   defaults.Generation.TextThinkingBudget,
		VisionThinkingBudget: defaults.Generation.VisionThinkingBudget,
		SourceBaseURLs:       make(map[string]string),
	}

	// data directory from the environment wins over settings.toml
	if dataDir := os.Getenv("GENADAPTER_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	method := SecurityMethod(userCfg.Security.Method)
	if method == "" {
		method = SecurityPlainText
	}
	keyPath := ExpandPath(userCfg.Security.SSHKeyPath)
	if method == SecuritySSHKey && keyPath == "" {
		keys, err := FindSSHKeys()
		if err != nil {
			return nil, fmt.Errorf("failed to look for SSH keys: %w", err)
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("security method %q requires an SSH key but none was found", method)
		}
		keyPath = keys[0]
	}

	store := NewCredentialStore(method, keyPath)
	if pass := os.Getenv("GENADAPTER_SSH_PASSPHRASE"); pass != "" {
		store.SetPassphrase(pass)
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}

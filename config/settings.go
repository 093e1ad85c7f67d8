package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

func userConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// LoadSystemConfig reads settings.toml, writing the template on first run.
func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	if err := decodeOrCreate(GetSettingsFilePath(), GenerateSystemConfigTemplate(), cfg); err != nil {
		return nil, fmt.Errorf("system config: %w", err)
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = defaultDataDir()
	}
	return cfg, nil
}

// LoadUserConfig decodes <dataDir>/config.toml on top of DefaultUserConfig,
// writing the commented template first if the file does not exist.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	if err := decodeOrCreate(userConfigPath(dataDir), GenerateUserConfigTemplate(), cfg); err != nil {
		return nil, fmt.Errorf("user config: %w", err)
	}
	return cfg, nil
}

// SaveUserConfig rewrites <dataDir>/config.toml from cfg. Comments from the
// template are not preserved.
func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(userConfigPath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open user config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}
	return nil
}

// decodeOrCreate decodes path into v. When path does not exist, template is
// written there and v keeps its defaults.
func decodeOrCreate(path, template string, v any) error {
	if !FileExists(path) {
		if err := EnsureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(template), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}

	md, err := toml.DecodeFile(path, v)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 && DebugLog != nil {
		DebugLog.Printf("[Config] Ignoring unknown keys in %s: %v", path, undecoded)
	}
	return nil
}

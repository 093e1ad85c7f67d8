package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appName = "genadapter"

// GetHomeDir returns the user's home directory, or "/" when none is set.
// HOME is consulted before the OS lookup so tests can redirect it.
func GetHomeDir() string {
	if runtime.GOOS != "windows" {
		if home := os.Getenv("HOME"); home != "" {
			return home
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return string(filepath.Separator)
}

// GetConfigDir returns $XDG_CONFIG_HOME/genadapter, falling back to
// ~/.config/genadapter.
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(GetHomeDir(), ".config", appName)
}

// GetSettingsFilePath returns the path to settings.toml, which only records
// where the data directory lives.
func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// defaultDataDir is written unexpanded into settings.toml.
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName)
	}
	return "~/.local/share/" + appName
}

// ExpandPath expands a leading ~ and environment variables, then cleans the
// result. An empty path stays empty.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates path and its parents with user-only access.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates dataDir if needed and tightens it to
// 0700, since it holds credentials and history.
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return EnsureDir(dataDir)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}

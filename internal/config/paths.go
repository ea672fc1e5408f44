package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// appName names markflow's directory inside each per-user base directory.
const appName = "markflow"

const configFileName = "config.toml"

// userDir is one kind of per-user base directory: where the XDG variable
// points on Linux, and the home-relative fallback elsewhere.
type userDir struct {
	xdgEnv   string
	fallback []string
}

var (
	// configBase holds config.toml.
	configBase = userDir{xdgEnv: "XDG_CONFIG_HOME", fallback: []string{".config"}}

	// dataBase holds the recent-files database and, unless configured
	// elsewhere, the instance lock and socket.
	dataBase = userDir{xdgEnv: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
)

// resolve returns markflow's directory of this kind for goos. macOS keeps
// config and data together under Application Support. A relative XDG value
// is ignored, as the XDG base directory rules require.
func (d userDir) resolve(goos, home string) string {
	if goos == platformDarwin {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	if goos == platformLinux {
		if xdg := os.Getenv(d.xdgEnv); filepath.IsAbs(xdg) {
			return filepath.Join(xdg, appName)
		}
	}

	parts := append([]string{home}, d.fallback...)

	return filepath.Join(append(parts, appName)...)
}

// DefaultConfigDir returns the directory searched for config.toml, or ""
// when the home directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return configBase.resolve(runtime.GOOS, home)
}

// DefaultDataDir returns the directory for the recent-files database and
// instance files, or "" when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return dataBase.resolve(runtime.GOOS, home)
}

// DefaultConfigPath is used when neither MARKFLOW_CONFIG nor --config is set.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after the four-layer override
// chain has been applied. Derived paths are absolute and never empty.
type Resolved struct {
	Config

	ConfigPath     string
	DataDir        string
	ForwardTimeout time.Duration
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. A first run needs no file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags. Paths left
// empty in the file are derived from the data directory.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Apply env overrides
	if env.BridgeListen != "" {
		cfg.Bridge.Listen = env.BridgeListen
	}

	// 4. Resolve data dir: CLI > env > platform default
	dataDir := DefaultDataDir()
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	if cli.DataDir != "" {
		dataDir = cli.DataDir
	}

	if dataDir == "" {
		return nil, errors.New("cannot determine data directory: set --data-dir or " + EnvDataDir)
	}

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	resolved := &Resolved{
		Config:     *cfg,
		ConfigPath: cfgPath,
		DataDir:    dataDir,
	}

	deriveDefaultPaths(resolved)

	resolved.ForwardTimeout, err = time.ParseDuration(resolved.Instance.ForwardTimeout)
	if err != nil {
		return nil, fmt.Errorf("forward_timeout: %w", err)
	}

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// deriveDefaultPaths fills instance and database paths the config file left
// empty with locations under the data directory.
func deriveDefaultPaths(r *Resolved) {
	if r.Instance.SocketPath == "" {
		r.Instance.SocketPath = filepath.Join(r.DataDir, socketFileName)
	}

	if r.Instance.LockPath == "" {
		r.Instance.LockPath = filepath.Join(r.DataDir, lockFileName)
	}

	if r.Recent.Database == "" {
		r.Recent.Database = filepath.Join(r.DataDir, databaseFileName)
	}
}

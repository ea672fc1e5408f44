// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for markflow. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Each section maps to one subsystem of the editor backend.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Instance InstanceConfig `toml:"instance"`
	Recent   RecentConfig   `toml:"recent"`
}

// LoggingConfig controls log output behavior: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// BridgeConfig controls the local websocket server the UI layer connects to.
// An empty port ("127.0.0.1:0") lets the OS pick one; the chosen address is
// printed on startup.
type BridgeConfig struct {
	Listen         string   `toml:"listen"`
	SendBuffer     int      `toml:"send_buffer"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// InstanceConfig controls how a second launch finds the running primary
// instance. Empty paths are derived from the data directory at resolve time.
type InstanceConfig struct {
	Transport      string `toml:"transport"`
	SocketPath     string `toml:"socket_path"`
	LockPath       string `toml:"lock_path"`
	BusName        string `toml:"bus_name"`
	ForwardTimeout string `toml:"forward_timeout"`
}

// RecentConfig controls the recently-opened files list.
type RecentConfig struct {
	Enabled    bool   `toml:"enabled"`
	MaxEntries int    `toml:"max_entries"`
	Database   string `toml:"database"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	DataDir    string // --data-dir flag
}

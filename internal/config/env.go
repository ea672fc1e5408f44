package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "MARKFLOW_CONFIG"
	EnvDataDir      = "MARKFLOW_DATA_DIR"
	EnvBridgeListen = "MARKFLOW_BRIDGE_LISTEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // MARKFLOW_CONFIG: override config file path
	DataDir      string // MARKFLOW_DATA_DIR: data directory override
	BridgeListen string // MARKFLOW_BRIDGE_LISTEN: bridge listen address
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		DataDir:      os.Getenv(EnvDataDir),
		BridgeListen: os.Getenv(EnvBridgeListen),
	}
}

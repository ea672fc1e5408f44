package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and work without any config file.
const (
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultBridgeListen   = "127.0.0.1:0"
	defaultSendBuffer     = 64
	defaultTransport      = TransportSocket
	defaultBusName        = "io.github.tomwld.MarkFlow"
	defaultForwardTimeout = "5s"
	defaultRecentMax      = 10
)

// defaultAllowedOrigins lists the websocket Origin host patterns accepted
// without configuration: a webview served from tauri://localhost or
// http://tauri.localhost, and local dev servers on any port. Returned fresh
// each call because TOML decoding reuses the slice.
func defaultAllowedOrigins() []string {
	return []string{"localhost", "localhost:*", "127.0.0.1", "127.0.0.1:*", "tauri.localhost"}
}

// Derived file names under the data directory.
const (
	socketFileName   = "markflow.sock"
	lockFileName     = "markflow.pid"
	databaseFileName = "state.db"
)

// Instance transports.
const (
	TransportSocket = "socket"
	TransportDBus   = "dbus"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Bridge: BridgeConfig{
			Listen:         defaultBridgeListen,
			SendBuffer:     defaultSendBuffer,
			AllowedOrigins: defaultAllowedOrigins(),
		},
		Instance: InstanceConfig{
			Transport:      defaultTransport,
			BusName:        defaultBusName,
			ForwardTimeout: defaultForwardTimeout,
		},
		Recent: RecentConfig{
			Enabled:    true,
			MaxEntries: defaultRecentMax,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"net"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Validation range constants.
const (
	minSendBuffer     = 1
	maxSendBuffer     = 4096
	minForwardTimeout = 100 * time.Millisecond
	minRecentEntries  = 1
	maxRecentEntries  = 100
	maxBusNameLength  = 255
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

var validTransports = map[string]bool{
	TransportSocket: true,
	TransportDBus:   true,
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateBridge(&cfg.Bridge)...)
	errs = append(errs, validateInstance(&cfg.Instance)...)
	errs = append(errs, validateRecent(&cfg.Recent)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense after the
// override chain has run: derived paths must be absolute.
func ValidateResolved(r *Resolved) error {
	var errs []error

	paths := []struct {
		name, value string
	}{
		{"socket_path", r.Instance.SocketPath},
		{"lock_path", r.Instance.LockPath},
		{"database", r.Recent.Database},
	}

	for _, p := range paths {
		if !filepath.IsAbs(p.value) {
			errs = append(errs, fmt.Errorf("%s: must be absolute, got %q", p.name, p.value))
		}
	}

	if _, _, err := net.SplitHostPort(r.Bridge.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen: %w", err))
	}

	return errors.Join(errs...)
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateBridge(b *BridgeConfig) []error {
	var errs []error

	if _, _, err := net.SplitHostPort(b.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen: %w", err))
	}

	if b.SendBuffer < minSendBuffer || b.SendBuffer > maxSendBuffer {
		errs = append(errs, fmt.Errorf("send_buffer: must be between %d and %d, got %d",
			minSendBuffer, maxSendBuffer, b.SendBuffer))
	}

	for _, origin := range b.AllowedOrigins {
		if _, err := path.Match(origin, ""); err != nil {
			errs = append(errs, fmt.Errorf("allowed_origins: invalid pattern %q: %w", origin, err))
		}
	}

	return errs
}

func validateInstance(in *InstanceConfig) []error {
	var errs []error

	if !validTransports[in.Transport] {
		errs = append(errs, fmt.Errorf("transport: must be %q or %q, got %q",
			TransportSocket, TransportDBus, in.Transport))
	}

	if in.Transport == TransportDBus {
		if err := validateBusName(in.BusName); err != nil {
			errs = append(errs, fmt.Errorf("bus_name: %w", err))
		}
	}

	d, err := time.ParseDuration(in.ForwardTimeout)
	if err != nil {
		errs = append(errs, fmt.Errorf("forward_timeout: %w", err))
	} else if d < minForwardTimeout {
		errs = append(errs, fmt.Errorf("forward_timeout: must be at least %s, got %s", minForwardTimeout, d))
	}

	return errs
}

func validateRecent(r *RecentConfig) []error {
	if r.MaxEntries < minRecentEntries || r.MaxEntries > maxRecentEntries {
		return []error{fmt.Errorf("max_entries: must be between %d and %d, got %d",
			minRecentEntries, maxRecentEntries, r.MaxEntries)}
	}

	return nil
}

// validateBusName applies the D-Bus well-known name rules: at least two
// dot-separated elements of [A-Za-z0-9_-], none starting with a digit.
func validateBusName(name string) error {
	if name == "" || len(name) > maxBusNameLength {
		return fmt.Errorf("must be 1-%d characters, got %d", maxBusNameLength, len(name))
	}

	elements := strings.Split(name, ".")
	if len(elements) < 2 {
		return fmt.Errorf("%q needs at least two dot-separated elements", name)
	}

	for _, el := range elements {
		if el == "" {
			return fmt.Errorf("%q has an empty element", name)
		}

		if el[0] >= '0' && el[0] <= '9' {
			return fmt.Errorf("element %q starts with a digit", el)
		}

		for _, c := range el {
			if !isBusNameChar(c) {
				return fmt.Errorf("element %q contains invalid character %q", el, c)
			}
		}
	}

	return nil
}

func isBusNameChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-'
}

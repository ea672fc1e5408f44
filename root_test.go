package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomwld/MarkFlow/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests either
// call functions that take a CLIFlags value, or drive cobra with SetArgs.

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// shortTempDir keeps unix socket paths under the platform length limit.
func shortTempDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "mf")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return dir
}

// testCLIContext resolves defaults against a fresh data directory.
func testCLIContext(t *testing.T) *CLIContext {
	t.Helper()

	dataDir := shortTempDir(t)

	cfg, err := config.Resolve(config.EnvOverrides{}, config.CLIOverrides{
		ConfigPath: filepath.Join(dataDir, "absent.toml"),
		DataDir:    dataDir,
	})
	require.NoError(t, err)

	return &CLIContext{
		Flags:  CLIFlags{Quiet: true},
		Cfg:    cfg,
		Logger: testLogger(t),
	}
}

func TestBootstrapLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		flags    CLIFlags
		enabled  slog.Level
		disabled slog.Level
	}{
		{"default", CLIFlags{}, slog.LevelWarn, slog.LevelInfo},
		{"verbose", CLIFlags{Verbose: true}, slog.LevelInfo, slog.LevelDebug},
		{"debug", CLIFlags{Debug: true}, slog.LevelDebug, slog.LevelDebug - 4},
		{"quiet", CLIFlags{Quiet: true}, slog.LevelError, slog.LevelWarn},
		{"quiet wins", CLIFlags{Quiet: true, Debug: true}, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := bootstrapLogger(tt.flags).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.disabled))
		})
	}
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := buildLogger(&buf, config.LoggingConfig{LogLevel: "warn", LogFormat: "json"}, CLIFlags{})
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := buildLogger(&buf, config.LoggingConfig{LogLevel: "error"}, CLIFlags{Debug: true})
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_AutoFormatIsJSONWhenNotTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	buildLogger(&buf, config.LoggingConfig{LogLevel: "info", LogFormat: "auto"}, CLIFlags{}).
		Info("watch added", slog.String("path", "/notes/a.md"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "watch added", rec["msg"])
	assert.Equal(t, "/notes/a.md", rec["path"])
}

func TestBuildLogger_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	buildLogger(&buf, config.LoggingConfig{LogLevel: "info", LogFormat: "text"}, CLIFlags{}).
		Info("watch added")

	assert.Contains(t, buf.String(), `msg="watch added"`)
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "status")
	assert.Contains(t, names, "recent")
	assert.True(t, cmd.FParseErrWhitelist.UnknownFlags)
}

func TestCLIContextFrom_Missing(t *testing.T) {
	t.Parallel()

	_, err := cliContextFrom(context.Background())
	assert.Error(t, err)
}

func TestRootCmd_StatusWithDataDir(t *testing.T) {
	dataDir := shortTempDir(t)

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dataDir, "absent.toml"),
		"--data-dir", dataDir,
		"--json",
		"status",
	})

	require.NoError(t, cmd.Execute())

	var report statusReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.False(t, report.Running)
	assert.Equal(t, filepath.Join(dataDir, "markflow.pid"), report.LockPath)
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	dataDir := shortTempDir(t)
	cfgPath := filepath.Join(dataDir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[bridge]\nlisten_addr = \"x\"\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--data-dir", dataDir, "status"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_addr")
}

func TestRootCmd_SubcommandNameNeedsPathPrefix(t *testing.T) {
	cmd := newRootCmd()

	found, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)
	assert.Equal(t, "status", found.Name())

	found, args, err := cmd.Find([]string{"./status"})
	require.NoError(t, err)
	assert.Equal(t, cmd, found)
	assert.Equal(t, []string{"./status"}, args)
	assert.Contains(t, cmd.Long, "markflow ./status")
}

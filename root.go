package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tomwld/MarkFlow/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDataDir    string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIFlags is a snapshot of the persistent flags for one invocation.
type CLIFlags struct {
	ConfigPath string
	DataDir    string
	JSON       bool
	Verbose    bool
	Debug      bool
	Quiet      bool
}

// CLIContext carries the resolved configuration and logger to subcommands.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext attached by the root pre-run.
func cliContextFrom(ctx context.Context) (*CLIContext, error) {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cc == nil {
		return nil, errors.New("internal error: command context not initialized")
	}

	return cc, nil
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markflow [file]",
		Short: "MarkFlow markdown editor backend",
		Long: "Starts the MarkFlow editor backend, or hands the file to an\n" +
			"already running editor and exits.\n\n" +
			"A file named like a subcommand (status, recent) must be given\n" +
			"with a path prefix, e.g. markflow ./status",
		Version: version,
		Args:    cobra.ArbitraryArgs,
		// Silence Cobra's default error/usage printing; exitOnError reports.
		SilenceErrors: true,
		SilenceUsage:  true,
		// Desktop launchers add their own flags (macOS -psn_...).
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		PersistentPreRunE:  loadCLIContext,
		RunE:               runLaunch,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for the lock, socket and database")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRecentCmd())

	return cmd
}

// currentFlags snapshots the global flag variables.
func currentFlags() CLIFlags {
	return CLIFlags{
		ConfigPath: flagConfigPath,
		DataDir:    flagDataDir,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Debug:      flagDebug,
		Quiet:      flagQuiet,
	}
}

// loadCLIContext resolves configuration from the four-layer override chain,
// builds the logger, and attaches both to the command context.
func loadCLIContext(cmd *cobra.Command, _ []string) error {
	flags := currentFlags()

	cfg, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		DataDir:    flags.DataDir,
	})
	if err != nil {
		bootstrapLogger(flags).Debug("config resolution failed", slog.String("error", err.Error()))

		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Flags:  flags,
		Cfg:    cfg,
		Logger: buildLogger(os.Stderr, cfg.Logging, flags),
	}

	cc.Logger.Debug("configuration resolved",
		slog.String("config_path", cfg.ConfigPath),
		slog.String("data_dir", cfg.DataDir),
	)

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

	return nil
}

// bootstrapLogger is used before configuration is available. Default level
// is Warn; flags raise or lower it.
func bootstrapLogger(flags CLIFlags) *slog.Logger {
	level := flagLevel(flags, slog.LevelWarn)

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildLogger creates the process logger. The config-file level is the
// baseline; --debug, --verbose and --quiet override it because CLI flags
// always win. Format "auto" picks text for a terminal and JSON otherwise.
func buildLogger(w io.Writer, cfg config.LoggingConfig, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: flagLevel(flags, level)}

	if useTextFormat(w, cfg.LogFormat) {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

// flagLevel applies the logging flags on top of base. --quiet wins over
// everything, --debug over --verbose.
func flagLevel(flags CLIFlags, base slog.Level) slog.Level {
	switch {
	case flags.Quiet:
		return slog.LevelError
	case flags.Debug:
		return slog.LevelDebug
	case flags.Verbose:
		return slog.LevelInfo
	default:
		return base
	}
}

func useTextFormat(w io.Writer, format string) bool {
	switch format {
	case "text":
		return true
	case "json":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

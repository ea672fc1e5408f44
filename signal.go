package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// shutdownContext returns a context canceled by the first SIGINT or SIGTERM.
// A second signal exits the process at once.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		watchShutdownSignals(parent, ctx, cancel, sigCh, logger, func() { os.Exit(1) })
	}()

	return ctx
}

// watchShutdownSignals cancels on the first signal and calls forceExit on
// the second. It returns when ctx ends before any signal, or when parent
// ends while the backend is stopping.
func watchShutdownSignals(
	parent, ctx context.Context, cancel context.CancelFunc,
	sigCh <-chan os.Signal, logger *slog.Logger, forceExit func(),
) {
	var first time.Time

	select {
	case sig := <-sigCh:
		first = time.Now()
		logger.Info("stopping editor backend",
			slog.String("signal", sig.String()),
			slog.Int("pid", os.Getpid()),
		)
		cancel()
	case <-ctx.Done():
		return
	}

	select {
	case sig := <-sigCh:
		logger.Warn("editor backend still stopping, forcing exit",
			slog.String("signal", sig.String()),
			slog.Duration("since_first_signal", time.Since(first)),
		)
		forceExit()
	case <-parent.Done():
	}
}

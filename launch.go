package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tomwld/MarkFlow/internal/app"
	"github.com/tomwld/MarkFlow/internal/bridge"
	"github.com/tomwld/MarkFlow/internal/instance"
	"github.com/tomwld/MarkFlow/internal/launch"
	"github.com/tomwld/MarkFlow/internal/recent"
	"github.com/tomwld/MarkFlow/internal/watch"
)

// runLaunch is the root command's action. The file to open is taken from
// the raw process arguments, not from cobra's parsed ones, so a forwarded
// launch and a first launch read the same argument position.
func runLaunch(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	return runShell(ctx, cc, os.Args, cmd.OutOrStdout())
}

// runShell claims the editor instance and serves the UI until ctx ends. If
// another instance already runs, args are handed to it and runShell returns
// at once without starting anything. The bridge URL is written to out.
func runShell(ctx context.Context, cc *CLIContext, args []string, out io.Writer) error {
	logger := cc.Logger

	mech, err := instance.New(instance.OptionsFromConfig(cc.Cfg), logger)
	if err != nil {
		return err
	}

	hub := bridge.NewHub(cc.Cfg.Bridge.SendBuffer, logger)
	relay := launch.NewRelay(hub, hub, logger)

	release, err := mech.Claim(ctx, relay.Handle)
	if errors.Is(err, instance.ErrAlreadyRunning) {
		return forwardLaunch(ctx, cc, mech, args)
	}

	if err != nil {
		return fmt.Errorf("claiming editor instance: %w", err)
	}
	defer release()

	mailbox := launch.NewMailbox()
	if path, ok := launch.CandidatePath(args); ok {
		mailbox.SetOnce(path)
		logger.Info("launched with file", slog.String("path", path))
	}

	registry := watch.NewRegistry(watch.NewNormalizer(hub, logger), watch.NewFsnotifyWatcher, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []app.Option{app.WithExit(cancel)}

	if cc.Cfg.Recent.Enabled {
		store, err := recent.Open(ctx, cc.Cfg.Recent.Database, cc.Cfg.Recent.MaxEntries, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		opts = append(opts, app.WithRecent(store))
	}

	backend := app.New(registry, mailbox, logger, opts...)

	ln, err := net.Listen("tcp", cc.Cfg.Bridge.Listen)
	if err != nil {
		return fmt.Errorf("starting ui bridge on %s: %w", cc.Cfg.Bridge.Listen, err)
	}

	if err := announceBridge(out, ln.Addr(), cc.Flags.JSON); err != nil {
		ln.Close()

		return err
	}

	server := bridge.NewServer(hub, backend, cc.Cfg.Bridge.AllowedOrigins, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})
	g.Go(func() error {
		<-gctx.Done()

		return registry.Close()
	})

	err = g.Wait()

	logger.Info("editor backend stopped")

	return err
}

// forwardLaunch hands args to the running primary instance.
func forwardLaunch(ctx context.Context, cc *CLIContext, mech instance.Mechanism, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		cc.Logger.Debug("cannot determine working directory", slog.String("error", err.Error()))
	}

	req := instance.Request{ID: uuid.NewString(), Args: args, Cwd: cwd}
	if err := mech.Forward(ctx, req); err != nil {
		return fmt.Errorf("handing launch to running editor: %w", err)
	}

	if path, ok := launch.CandidatePath(args); ok {
		statusf(cc.Flags.Quiet, "MarkFlow is already running; opened %s there\n", path)
	} else {
		statusf(cc.Flags.Quiet, "MarkFlow is already running\n")
	}

	return nil
}

// bridgeInfo is the machine-readable startup line for the UI shell.
type bridgeInfo struct {
	URL string `json:"url"`
	PID int    `json:"pid"`
}

func bridgeURL(addr net.Addr) string {
	return "ws://" + addr.String() + "/ws"
}

// announceBridge writes the websocket URL the UI shell should connect to.
func announceBridge(out io.Writer, addr net.Addr, asJSON bool) error {
	url := bridgeURL(addr)

	if asJSON {
		return json.NewEncoder(out).Encode(bridgeInfo{URL: url, PID: os.Getpid()})
	}

	_, err := fmt.Fprintln(out, url)

	return err
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomwld/MarkFlow/internal/recent"
)

func newRecentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened files",
		Long:  "List the files the editor opened most recently, newest first.",
		Args:  cobra.NoArgs,
		RunE:  runRecentList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget all recently opened files",
		Args:  cobra.NoArgs,
		RunE:  runRecentClear,
	})

	return cmd
}

// recentJSON is the --json shape of one recent-files entry.
type recentJSON struct {
	Path     string    `json:"path"`
	OpenedAt time.Time `json:"opened_at"`
}

// openRecentStore opens the store from the resolved config. A nil store and
// nil error mean the feature is disabled.
func openRecentStore(cmd *cobra.Command, cc *CLIContext) (*recent.Store, error) {
	if !cc.Cfg.Recent.Enabled {
		cc.Statusf("Recent files are disabled in %s\n", cc.Cfg.ConfigPath)

		return nil, nil
	}

	return recent.Open(cmd.Context(), cc.Cfg.Recent.Database, cc.Cfg.Recent.MaxEntries, cc.Logger)
}

func runRecentList(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openRecentStore(cmd, cc)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printRecentJSON(cmd.OutOrStdout(), entries)
	}

	if len(entries) == 0 {
		cc.Statusf("No recent files\n")

		return nil
	}

	printRecentTable(cmd.OutOrStdout(), entries, time.Now())

	return nil
}

func runRecentClear(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openRecentStore(cmd, cc)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}

	cc.Statusf("Recent files cleared\n")

	return nil
}

func printRecentJSON(w io.Writer, entries []recent.Entry) error {
	out := make([]recentJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, recentJSON{Path: e.Path, OpenedAt: e.OpenedAt})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding recent files: %w", err)
	}

	return nil
}

func printRecentTable(w io.Writer, entries []recent.Entry, now time.Time) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{formatTime(e.OpenedAt, now), e.Path})
	}

	printTable(w, []string{"OPENED", "PATH"}, rows)
}

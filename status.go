package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomwld/MarkFlow/internal/config"
	"github.com/tomwld/MarkFlow/internal/instance"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an editor instance is running",
		Long: `Report whether a primary MarkFlow instance holds the instance lock,
and its PID. A lock file left behind by a crashed instance is reported as stale.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// statusReport is the --json shape of `markflow status`.
type statusReport struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
	Transport string `json:"transport"`
	LockPath  string `json:"lock_path"`
	Socket    string `json:"socket_path,omitempty"`
	BusName   string `json:"bus_name,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc, err := cliContextFrom(cmd.Context())
	if err != nil {
		return err
	}

	st, err := instance.Probe(cc.Cfg.Instance.LockPath)
	if err != nil {
		return fmt.Errorf("checking editor instance: %w", err)
	}

	report := buildStatusReport(cc, st)

	if cc.Flags.JSON {
		return printStatusJSON(cmd.OutOrStdout(), report)
	}

	printStatusText(cmd.OutOrStdout(), report)

	return nil
}

func buildStatusReport(cc *CLIContext, st instance.Status) statusReport {
	in := cc.Cfg.Instance

	report := statusReport{
		Running:   st.Running,
		PID:       st.PID,
		Stale:     st.Stale,
		Transport: in.Transport,
		LockPath:  in.LockPath,
	}

	if in.Transport == config.TransportDBus {
		report.BusName = in.BusName
	} else {
		report.Socket = in.SocketPath
	}

	return report
}

func printStatusJSON(w io.Writer, report statusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}

func printStatusText(w io.Writer, report statusReport) {
	switch {
	case report.Running:
		fmt.Fprintf(w, "MarkFlow is running (PID %d)\n", report.PID)
	case report.Stale:
		fmt.Fprintf(w, "MarkFlow is not running (stale lock from PID %d)\n", report.PID)
	default:
		fmt.Fprintln(w, "MarkFlow is not running")
	}

	rows := [][]string{
		{"transport", report.Transport},
		{"lock", report.LockPath},
	}

	if report.BusName != "" {
		rows = append(rows, []string{"bus name", report.BusName})
	} else {
		rows = append(rows, []string{"socket", report.Socket})
	}

	fmt.Fprintln(w)
	printTable(w, []string{"SETTING", "VALUE"}, rows)
}

package bridge

import (
	"context"
	"fmt"
)

// Backend executes UI commands. Every method is called from a connection's
// reader goroutine and must be safe for concurrent use.
type Backend interface {
	StartupFile() (string, bool)
	WatchFile(path string) error
	UnwatchFile(path string) error
	RecentFiles(ctx context.Context) ([]string, error)
	RecordRecentFile(ctx context.Context, path string) error
	ClearRecentFiles(ctx context.Context) error
	Exit()
}

// dispatch runs one command and returns its JSON-encodable result.
func dispatch(ctx context.Context, b Backend, req invokeFrame) (any, error) {
	switch req.Command {
	case CmdGetStartupFile:
		if path, ok := b.StartupFile(); ok {
			return path, nil
		}

		return nil, nil

	case CmdWatchFile:
		return nil, b.WatchFile(req.Args.Path)

	case CmdUnwatchFile:
		return nil, b.UnwatchFile(req.Args.Path)

	case CmdRecentFiles:
		paths, err := b.RecentFiles(ctx)
		if err != nil {
			return nil, err
		}

		if paths == nil {
			paths = []string{}
		}

		return paths, nil

	case CmdRecordRecentFile:
		return nil, b.RecordRecentFile(ctx, req.Args.Path)

	case CmdClearRecentFiles:
		return nil, b.ClearRecentFiles(ctx)

	case CmdExitApp:
		// Exit runs in the server after the reply is written.
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
}

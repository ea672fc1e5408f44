// Package instance guarantees that one editor process runs per user session.
// The first process claims the instance and receives the argument vectors of
// every later launch; later processes forward their arguments and exit.
//
// Two transports are provided: an flock-guarded PID file plus a unix socket
// (all platforms), and a well-known name on the D-Bus session bus (Linux
// desktops).
package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomwld/MarkFlow/internal/config"
)

// ErrAlreadyRunning is returned by Claim when another process holds the
// instance. The caller should Forward its launch and exit.
var ErrAlreadyRunning = errors.New("instance: another instance is already running")

// Request is one launch forwarded from a secondary process.
type Request struct {
	ID   string   `json:"id"`
	Args []string `json:"args"`
	Cwd  string   `json:"cwd"`
}

// Handler receives forwarded launches in the primary process. It runs on a
// transport goroutine, never on the caller of Claim.
type Handler func(args []string, cwd string)

// Mechanism is a single-instance transport.
type Mechanism interface {
	// Claim makes this process the primary instance and starts delivering
	// forwarded launches to handler. ctx bounds setup only. The returned
	// release stops delivery and frees the claim; it is safe to call twice.
	Claim(ctx context.Context, handler Handler) (release func(), err error)

	// Forward hands req to the primary instance.
	Forward(ctx context.Context, req Request) error
}

// Options selects and configures a transport.
type Options struct {
	Transport      string
	LockPath       string
	SocketPath     string
	BusName        string
	ForwardTimeout time.Duration
}

// OptionsFromConfig builds Options from resolved configuration.
func OptionsFromConfig(r *config.Resolved) Options {
	return Options{
		Transport:      r.Instance.Transport,
		LockPath:       r.Instance.LockPath,
		SocketPath:     r.Instance.SocketPath,
		BusName:        r.Instance.BusName,
		ForwardTimeout: r.ForwardTimeout,
	}
}

// New returns the Mechanism for opts.Transport.
func New(opts Options, logger *slog.Logger) (Mechanism, error) {
	switch opts.Transport {
	case config.TransportSocket, "":
		return newSocketMechanism(opts, logger), nil
	case config.TransportDBus:
		return newDBusMechanism(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown instance transport %q", opts.Transport)
	}
}

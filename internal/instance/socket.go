package instance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	socketPermissions = 0o600
	connTimeout       = 5 * time.Second
	dialRetryInterval = 50 * time.Millisecond
	maxRequestBytes   = 1 << 20
)

// ack is the primary's reply to a forwarded launch.
type ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// socketMechanism claims the instance with an flock on a PID file and
// receives launches on a unix socket next to it.
type socketMechanism struct {
	lockPath       string
	socketPath     string
	forwardTimeout time.Duration
	logger         *slog.Logger
}

func newSocketMechanism(opts Options, logger *slog.Logger) *socketMechanism {
	return &socketMechanism{
		lockPath:       opts.LockPath,
		socketPath:     opts.SocketPath,
		forwardTimeout: opts.ForwardTimeout,
		logger:         logger,
	}
}

// Claim implements Mechanism.
func (s *socketMechanism) Claim(ctx context.Context, handler Handler) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock, err := acquireLock(s.lockPath)
	if err != nil {
		return nil, err
	}

	// Holding the lock proves any socket file left behind is from a dead
	// process.
	if err := cleanupSocket(s.socketPath); err != nil {
		unlock()

		return nil, err
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		unlock()

		return nil, fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, socketPermissions); err != nil {
		ln.Close()
		unlock()

		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.serve(ln, handler, &wg)
	}()

	s.logger.Info("claimed editor instance",
		slog.String("socket", s.socketPath),
		slog.String("lock", s.lockPath),
	)

	release := sync.OnceFunc(func() {
		ln.Close()
		wg.Wait()
		os.Remove(s.socketPath)
		unlock()
	})

	return release, nil
}

// serve accepts connections until ln is closed. Each connection carries one
// Request and is handled on its own goroutine.
func (s *socketMechanism) serve(ln net.Listener, handler Handler, wg *sync.WaitGroup) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.logger.Warn("accepting forwarded launch", slog.String("error", err.Error()))

			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			s.handleConn(conn, handler)
		}()
	}
}

func (s *socketMechanism) handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		s.logger.Warn("setting connection deadline", slog.String("error", err.Error()))

		return
	}

	var req Request
	if err := json.NewDecoder(io.LimitReader(conn, maxRequestBytes)).Decode(&req); err != nil {
		s.logger.Warn("decoding forwarded launch", slog.String("error", err.Error()))
		_ = json.NewEncoder(conn).Encode(ack{Error: "malformed request"})

		return
	}

	// Ack before handling so the secondary can exit without waiting on the UI.
	if err := json.NewEncoder(conn).Encode(ack{OK: true}); err != nil {
		s.logger.Debug("acknowledging forwarded launch", slog.String("error", err.Error()))
	}

	s.logger.Debug("received forwarded launch",
		slog.String("launch_id", req.ID),
		slog.Int("args", len(req.Args)),
	)

	handler(req.Args, req.Cwd)
}

// Forward implements Mechanism. The dial is retried until forwardTimeout
// because the primary may hold the lock before its socket is listening.
func (s *socketMechanism) Forward(ctx context.Context, req Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if s.forwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.forwardTimeout)
		defer cancel()
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("setting connection deadline: %w", err)
		}
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("sending launch to running instance: %w", err)
	}

	var reply ack
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return fmt.Errorf("reading reply from running instance: %w", err)
	}

	if !reply.OK {
		return fmt.Errorf("running instance rejected launch: %s", reply.Error)
	}

	s.logger.Debug("forwarded launch", slog.String("launch_id", req.ID))

	return nil
}

func (s *socketMechanism) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer

	for {
		conn, err := d.DialContext(ctx, "unix", s.socketPath)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connecting to running instance at %s: %w", s.socketPath, err)
		case <-time.After(dialRetryInterval):
		}
	}
}

// cleanupSocket removes a stale socket file. A non-socket file at path is
// left alone and reported.
func cleanupSocket(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("checking socket path: %w", err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("socket path exists but is not a socket: %s", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	return nil
}

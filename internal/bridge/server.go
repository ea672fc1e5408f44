package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxFrameBytes     = 1 << 20
)

// Server serves the websocket endpoint and a health check.
type Server struct {
	hub     *Hub
	backend Backend
	origins []string
	logger  *slog.Logger
}

// NewServer creates a Server. origins are extra Origin host patterns
// accepted on top of same-origin requests.
func NewServer(hub *Hub, backend Backend, origins []string, logger *slog.Logger) *Server {
	return &Server{hub: hub, backend: backend, origins: origins, logger: logger}
}

// Handler returns the HTTP routes: /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", s.serveHealth)

	return mux
}

// Serve serves on ln until ctx is canceled. Open websocket connections are
// closed when ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("ui bridge listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("ui bridge shutdown", slog.String("error", err.Error()))
		}

		<-errCh

		return nil
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.logger.Warn("rejected ui connection",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()),
		)

		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := s.hub.register()
	defer s.hub.unregister(c)

	go s.writeLoop(ctx, cancel, conn, c)

	s.readLoop(ctx, conn, c)

	conn.Close(websocket.StatusNormalClosure, "")
}

// writeLoop drains c.send to the connection until the channel is closed or
// a write fails.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}

			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()

			if err != nil {
				s.logger.Debug("writing to ui client", slog.String("client", c.id), slog.String("error", err.Error()))
				cancel()

				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// readLoop handles invocations one at a time until the connection ends.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				s.logger.Debug("reading from ui client", slog.String("client", c.id), slog.String("error", err.Error()))
			}

			return
		}

		reply, exit := s.handleFrame(ctx, data)

		frame, err := json.Marshal(reply)
		if err != nil {
			s.logger.Warn("encoding command result", slog.String("command_id", reply.ID), slog.String("error", err.Error()))

			continue
		}

		// Exit cancels the context every connection runs under, so the
		// reply is written directly before the backend shuts down.
		if exit {
			s.writeNow(ctx, conn, c, frame)
			s.backend.Exit()

			return
		}

		// Results are queued blocking: unlike events they must not be lost.
		select {
		case c.send <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// writeNow writes frame on the calling goroutine. coder/websocket allows
// Write concurrently with the write loop.
func (s *Server) writeNow(ctx context.Context, conn *websocket.Conn, c *client, frame []byte) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(wctx, websocket.MessageText, frame); err != nil {
		s.logger.Debug("writing to ui client", slog.String("client", c.id), slog.String("error", err.Error()))
	}
}

// handleFrame answers one frame. exit reports a successful exit_app, which
// the caller runs once the reply is on the wire.
func (s *Server) handleFrame(ctx context.Context, data []byte) (reply resultFrame, exit bool) {
	var req invokeFrame
	if err := json.Unmarshal(data, &req); err != nil {
		return resultFrame{Type: frameResult, Error: "malformed request: " + err.Error()}, false
	}

	if req.Type != frameInvoke {
		return resultFrame{Type: frameResult, ID: req.ID, Error: "unexpected frame type " + req.Type}, false
	}

	result, err := dispatch(ctx, s.backend, req)
	if err != nil {
		s.logger.Debug("command failed",
			slog.String("command", req.Command),
			slog.String("error", err.Error()),
		)

		return resultFrame{Type: frameResult, ID: req.ID, Error: err.Error()}, false
	}

	return resultFrame{Type: frameResult, ID: req.ID, Result: result}, req.Command == CmdExitApp
}

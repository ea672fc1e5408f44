package launch

import "log/slog"

// EventOpenFileRequest asks the running UI to open the payload path.
const EventOpenFileRequest = "open-file-request"

// Window is the application's main window.
type Window interface {
	Focus() error
}

// Emitter publishes a named event with a string payload to the live UI.
type Emitter interface {
	Emit(event, payload string) error
}

// Relay handles launches that arrive while the application is already
// running. It brings the window forward and passes any file path to the UI
// as an event; it never touches the startup Mailbox.
type Relay struct {
	window  Window
	emitter Emitter
	logger  *slog.Logger
}

// NewRelay creates a Relay.
func NewRelay(window Window, emitter Emitter, logger *slog.Logger) *Relay {
	return &Relay{window: window, emitter: emitter, logger: logger}
}

// Handle is the single-instance callback. args is the secondary process's
// full argument vector; cwd is its working directory and is not used to
// resolve relative paths. Failures are logged, never returned: the
// secondary process has already exited or is about to.
func (r *Relay) Handle(args []string, cwd string) {
	r.logger.Debug("relaying secondary launch",
		slog.Int("args", len(args)),
		slog.String("cwd", cwd),
	)

	if err := r.window.Focus(); err != nil {
		r.logger.Warn("cannot focus main window", slog.String("error", err.Error()))
	}

	path, ok := CandidatePath(args)
	if !ok {
		return
	}

	if err := r.emitter.Emit(EventOpenFileRequest, path); err != nil {
		r.logger.Warn("dropping open-file request",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	r.logger.Info("forwarded file to running editor", slog.String("path", path))
}

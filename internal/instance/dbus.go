package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// launchMethod is the exported method name on the instance object.
const launchMethod = "Launch"

// dbusMechanism claims the instance by owning a well-known name on the
// session bus. The owner exports an object whose Launch method receives
// forwarded argument vectors. The owner also holds the PID lock file so
// `markflow status` sees it the same way as with the socket transport.
type dbusMechanism struct {
	busName        string
	objectPath     dbus.ObjectPath
	lockPath       string
	forwardTimeout time.Duration
	logger         *slog.Logger
}

func newDBusMechanism(opts Options, logger *slog.Logger) *dbusMechanism {
	return &dbusMechanism{
		busName:        opts.BusName,
		objectPath:     objectPathFor(opts.BusName),
		lockPath:       opts.LockPath,
		forwardTimeout: opts.ForwardTimeout,
		logger:         logger,
	}
}

// objectPathFor derives the object path from a bus name:
// io.github.tomwld.MarkFlow becomes /io/github/tomwld/MarkFlow.
func objectPathFor(busName string) dbus.ObjectPath {
	p := strings.ReplaceAll(busName, "-", "_")

	return dbus.ObjectPath("/" + strings.ReplaceAll(p, ".", "/"))
}

// launchObject is exported on the bus by the primary instance.
type launchObject struct {
	handler Handler
	logger  *slog.Logger
}

// Launch is called over D-Bus by secondary processes.
func (o *launchObject) Launch(args []string, cwd string) *dbus.Error {
	o.logger.Debug("received forwarded launch over d-bus", slog.Int("args", len(args)))
	o.handler(args, cwd)

	return nil
}

// Claim implements Mechanism. The lock is taken first and the launch object
// is exported before the name is requested, so a secondary that sees the
// name owned can always call Launch.
func (m *dbusMechanism) Claim(ctx context.Context, handler Handler) (func(), error) {
	unlock, err := acquireLock(m.lockPath)
	if err != nil {
		return nil, err
	}

	// Private connection: release closes it.
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		unlock()

		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}

	obj := &launchObject{handler: handler, logger: m.logger}
	if err := conn.Export(obj, m.objectPath, m.busName); err != nil {
		conn.Close()
		unlock()

		return nil, fmt.Errorf("exporting launch object: %w", err)
	}

	reply, err := conn.RequestName(m.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		unlock()

		return nil, fmt.Errorf("requesting bus name %s: %w", m.busName, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		unlock()

		return nil, fmt.Errorf("%w (bus name %s is owned)", ErrAlreadyRunning, m.busName)
	}

	m.logger.Info("claimed editor instance",
		slog.String("bus_name", m.busName),
		slog.String("lock", m.lockPath),
	)

	release := sync.OnceFunc(func() {
		if _, err := conn.ReleaseName(m.busName); err != nil {
			m.logger.Debug("releasing bus name", slog.String("error", err.Error()))
		}

		conn.Close()
		unlock()
	})

	return release, nil
}

// Forward implements Mechanism.
func (m *dbusMechanism) Forward(ctx context.Context, req Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if m.forwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.forwardTimeout)
		defer cancel()
	}

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	if err := m.callLaunch(ctx, conn, req); err != nil {
		return err
	}

	m.logger.Debug("forwarded launch over d-bus", slog.String("launch_id", req.ID))

	return nil
}

// callLaunch calls Launch on the primary, retrying until ctx ends while the
// name has no owner yet. A primary holds the lock before it owns the name.
func (m *dbusMechanism) callLaunch(ctx context.Context, conn *dbus.Conn, req Request) error {
	obj := conn.Object(m.busName, m.objectPath)

	for {
		call := obj.CallWithContext(ctx, m.busName+"."+launchMethod, 0, req.Args, req.Cwd)
		if call.Err == nil {
			return nil
		}

		if !retryableCallError(call.Err) {
			return fmt.Errorf("calling %s on running instance: %w", launchMethod, call.Err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("calling %s on running instance: %w", launchMethod, call.Err)
		case <-time.After(dialRetryInterval):
		}
	}
}

// retryableCallError reports whether err means the primary is not on the
// bus yet.
func retryableCallError(err error) bool {
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		return false
	}

	switch dbusErr.Name {
	case "org.freedesktop.DBus.Error.ServiceUnknown",
		"org.freedesktop.DBus.Error.NameHasNoOwner",
		"org.freedesktop.DBus.Error.UnknownObject",
		"org.freedesktop.DBus.Error.UnknownMethod":
		return true
	default:
		return false
	}
}

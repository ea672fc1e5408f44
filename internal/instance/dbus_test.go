package instance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireSessionBus skips the test when no D-Bus session bus is reachable,
// which is the norm in CI containers.
func requireSessionBus(t *testing.T) {
	t.Helper()

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		t.Skipf("no session bus: %v", err)
	}

	conn.Close()
}

// uniqueBusName returns a bus name no other test run owns.
func uniqueBusName() string {
	return "org.markflow.test.T" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func dbusTestOptions(t *testing.T, forwardTimeout time.Duration) Options {
	t.Helper()

	return Options{
		Transport:      "dbus",
		BusName:        uniqueBusName(),
		LockPath:       filepath.Join(t.TempDir(), "markflow.pid"),
		ForwardTimeout: forwardTimeout,
	}
}

func TestObjectPathFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, dbus.ObjectPath("/io/github/tomwld/MarkFlow"), objectPathFor("io.github.tomwld.MarkFlow"))
	assert.Equal(t, dbus.ObjectPath("/org/my_app/Editor"), objectPathFor("org.my-app.Editor"))
	assert.True(t, objectPathFor("org.my-app.Editor").IsValid())
}

func TestDBus_ClaimAndForward(t *testing.T) {
	requireSessionBus(t)

	opts := dbusTestOptions(t, 5*time.Second)
	primary := newDBusMechanism(opts, testLogger(t))
	rec := newLaunchRecorder()

	release, err := primary.Claim(context.Background(), rec.handle)
	require.NoError(t, err)
	defer release()

	secondary := newDBusMechanism(opts, testLogger(t))
	_, err = secondary.Claim(context.Background(), rec.handle)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, secondary.Forward(context.Background(), Request{
		Args: []string{"markflow", "/docs/b.md"},
		Cwd:  "/home/u",
	}))

	got := rec.next(t)
	assert.Equal(t, []string{"markflow", "/docs/b.md"}, got.Args)
	assert.Equal(t, "/home/u", got.Cwd)
}

func TestDBus_ForwardWithoutPrimary(t *testing.T) {
	requireSessionBus(t)

	m := newDBusMechanism(dbusTestOptions(t, 300*time.Millisecond), testLogger(t))

	err := m.Forward(context.Background(), Request{Args: []string{"markflow"}})
	require.Error(t, err)
}

func TestDBus_ClaimHoldsLockFile(t *testing.T) {
	requireSessionBus(t)

	opts := dbusTestOptions(t, time.Second)
	release, err := newDBusMechanism(opts, testLogger(t)).Claim(context.Background(), newLaunchRecorder().handle)
	require.NoError(t, err)

	st, err := Probe(opts.LockPath)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)

	release()

	st, err = Probe(opts.LockPath)
	require.NoError(t, err)
	assert.False(t, st.Running)
}

func TestDBus_LockHeldElsewhereIsAlreadyRunning(t *testing.T) {
	requireSessionBus(t)

	opts := dbusTestOptions(t, time.Second)

	unlock, err := acquireLock(opts.LockPath)
	require.NoError(t, err)
	defer unlock()

	_, err = newDBusMechanism(opts, testLogger(t)).Claim(context.Background(), newLaunchRecorder().handle)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestDBus_ForwardWaitsForLatePrimary(t *testing.T) {
	requireSessionBus(t)

	opts := dbusTestOptions(t, 5*time.Second)
	rec := newLaunchRecorder()

	done := make(chan error, 1)

	go func() {
		done <- newDBusMechanism(opts, testLogger(t)).Forward(context.Background(), Request{
			Args: []string{"markflow", "/docs/late.md"},
		})
	}()

	time.Sleep(200 * time.Millisecond)

	release, err := newDBusMechanism(opts, testLogger(t)).Claim(context.Background(), rec.handle)
	require.NoError(t, err)
	defer release()

	require.NoError(t, <-done)
	assert.Equal(t, []string{"markflow", "/docs/late.md"}, rec.next(t).Args)
}

func TestRetryableCallError(t *testing.T) {
	t.Parallel()

	assert.True(t, retryableCallError(dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"}))
	assert.True(t, retryableCallError(dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}))
	assert.False(t, retryableCallError(dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}))
	assert.False(t, retryableCallError(errors.New("connection reset")))
}

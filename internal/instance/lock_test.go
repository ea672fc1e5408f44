package instance

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_WritesPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "markflow.pid")

	release, err := acquireLock(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(data)))

	release()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "lock file removed on release")
}

func TestAcquireLock_SecondHolderRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "markflow.pid")

	release, err := acquireLock(path)
	require.NoError(t, err)
	defer release()

	_, err = acquireLock(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireLock_ReacquireAfterRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "markflow.pid")

	release, err := acquireLock(path)
	require.NoError(t, err)
	release()

	release, err = acquireLock(path)
	require.NoError(t, err)
	release()
}

func TestAcquireLock_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := acquireLock("")
	require.Error(t, err)
}

func TestProbe_NoFile(t *testing.T) {
	t.Parallel()

	st, err := Probe(filepath.Join(t.TempDir(), "markflow.pid"))
	require.NoError(t, err)
	assert.Equal(t, Status{}, st)
}

func TestProbe_Running(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "markflow.pid")

	release, err := acquireLock(path)
	require.NoError(t, err)
	defer release()

	st, err := Probe(path)
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.False(t, st.Stale)
	assert.Equal(t, os.Getpid(), st.PID)
}

func TestProbe_Stale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "markflow.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999\n"), 0o600))

	st, err := Probe(path)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.True(t, st.Stale)
	assert.Equal(t, 999999, st.PID)

	// Stale files stay for the next primary to reuse.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestProbe_Garbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "markflow.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o600))

	_, err := Probe(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID")
}

package instance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// lockFilePermissions: owner rw, group/other r.
const lockFilePermissions = 0o644

// lockDirPermissions is owner-only: the directory also holds the socket.
const lockDirPermissions = 0o700

// acquireLock writes the current PID to path and takes an exclusive,
// non-blocking flock on it. The returned release removes the file and drops
// the lock. ErrAlreadyRunning means another process holds the lock.
func acquireLock(path string) (release func(), err error) {
	if path == "" {
		return nil, errors.New("lock file path is empty, cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), lockDirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock held on %s)", ErrAlreadyRunning, path)
		}

		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating lock file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	// Readers such as `markflow status` must see the PID immediately.
	if err := f.Sync(); err != nil {
		f.Close()

		return nil, fmt.Errorf("syncing lock file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

// Status describes the primary instance recorded in a lock file.
type Status struct {
	PID     int
	Running bool
	Stale   bool // lock file present but nobody holds it
}

// Probe reports whether a primary instance holds the lock at path. A lock
// file nobody holds is reported as stale and left in place: the next primary
// reuses it.
func Probe(path string) (Status, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{}, nil
		}

		return Status{}, fmt.Errorf("opening lock file: %w", err)
	}
	defer f.Close()

	pid, err := readPID(f)
	if err != nil {
		return Status{}, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	// A shared lock succeeds only when no primary holds the exclusive one.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return Status{PID: pid, Running: true}, nil
		}

		return Status{}, fmt.Errorf("probing lock on %s: %w", path, err)
	}

	return Status{PID: pid, Stale: true}, nil
}

func readPID(f *os.File) (int, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(data)))
}

//go:build unix

package toolchain

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an advisory flock(2) lock on a sidecar file.
type fileLock struct {
	path string
	f    *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

func (l *fileLock) lockShared() error {
	return l.lock(unix.LOCK_SH)
}

func (l *fileLock) lockExclusive() error {
	return l.lock(unix.LOCK_EX)
}

func (l *fileLock) lock(how int) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return fmt.Errorf("flock %s: %w", l.path, err)
	}
	l.f = f
	return nil
}

func (l *fileLock) unlock() error {
	if l.f == nil {
		return nil
	}
	defer func() {
		l.f.Close()
		l.f = nil
	}()
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

//go:build !unix

package toolchain

// fileLock is a no-op where flock(2) is unavailable; the registry mutex
// still serializes access within one process.
type fileLock struct{}

func newFileLock(string) *fileLock { return &fileLock{} }

func (l *fileLock) lockShared() error    { return nil }
func (l *fileLock) lockExclusive() error { return nil }
func (l *fileLock) unlock() error        { return nil }

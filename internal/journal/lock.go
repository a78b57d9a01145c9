package journal

import (
	"fmt"
	"os"
	"syscall"

	"github.com/Justype/hqadapter/internal/utils"
)

// lock is an flock on the journal's lock file. It must be closed to
// release the lock.
type lock struct {
	file *os.File
}

func (l *lock) Close() error {
	if l.file == nil {
		return nil
	}
	// flock locks are released when the file is closed.
	err := l.file.Close()
	l.file = nil
	return err
}

// acquireLock blocks until it holds the lock at path. write selects an
// exclusive lock (LOCK_EX), otherwise a shared one (LOCK_SH).
func acquireLock(path string, write bool) (*lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, utils.PermFile)
	if err != nil {
		return nil, fmt.Errorf("can't open lock file %s: %w", utils.StylePath(path), err)
	}

	how := syscall.LOCK_SH
	if write {
		how = syscall.LOCK_EX
	}
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, fmt.Errorf("can't lock %s: %w", utils.StylePath(path), err)
	}
	return &lock{file: f}, nil
}

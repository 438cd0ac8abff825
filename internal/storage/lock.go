package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrLocked is returned when the lock file is held by someone else.
var ErrLocked = errors.New("storage: lock held")

// staleLockAge is how old a lock file must be before it is considered abandoned.
const staleLockAge = 10 * time.Minute

// FileLock is an advisory lock implemented as an exclusively created file.
type FileLock struct {
	path string
}

// Acquire creates path+".lock", retrying until ctx is done. Lock files older
// than staleLockAge are removed first.
func Acquire(ctx context.Context, path string) (*FileLock, error) {
	lockPath := path + ".lock"
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			_ = f.Close()
			return &FileLock{path: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock %s: %w", lockPath, err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(lockPath)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Release removes the lock file.
func (l *FileLock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

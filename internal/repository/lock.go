package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const (
	// LockTimeout defines the default maximum time to wait for the run lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// ErrLockTimeout is returned when another run holds the lock past the timeout.
var ErrLockTimeout = errors.New("another release run holds the lock")

// RunLock serializes release runs against the same working copy.
type RunLock interface {
	Acquire(ctx context.Context) error
	Release() error
	Path() string
}

type fileRunLock struct {
	lock    *flock.Flock
	timeout time.Duration
}

// NewRunLock creates an advisory file lock at path.
func NewRunLock(path string, timeout time.Duration) RunLock {
	if timeout <= 0 {
		timeout = LockTimeout
	}
	return &fileRunLock{lock: flock.New(path), timeout: timeout}
}

func (l *fileRunLock) Path() string {
	return l.lock.Path()
}

// Acquire blocks until the lock is held, ctx is done or the timeout elapses.
func (l *fileRunLock) Acquire(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	locked, err := l.acquireLockWithContext(lockCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s", ErrLockTimeout, l.lock.Path())
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrLockTimeout, l.lock.Path())
	}
	return nil
}

func (l *fileRunLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// acquireLockWithContext attempts to acquire an exclusive lock with context support
func (l *fileRunLock) acquireLockWithContext(ctx context.Context) (bool, error) {
	if locked, err := l.lock.TryLock(); err != nil || locked {
		return locked, err
	}
	ticker := time.NewTicker(LockRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			locked, err := l.lock.TryLock()
			if err != nil {
				return false, err
			}
			if locked {
				return true, nil
			}
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const (
	// LockName is the lock file created in the working directory for each batch.
	LockName = ".minimize.lock"

	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 10 * time.Millisecond
)

// ErrLocked is returned when another run holds the batch lock.
var ErrLocked = errors.New("another minimize run is using this directory")

// Locker serialises batches that share a directory.
type Locker interface {
	// Lock blocks until the lock is held or fails; the returned func releases it.
	Lock(ctx context.Context) (func(), error)
}

// FileLock is an advisory flock on a file path.
type FileLock struct {
	Path    string
	Timeout time.Duration
}

// Lock acquires an exclusive flock, retrying until Timeout elapses.
func (l FileLock) Lock(ctx context.Context) (func(), error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(l.Path)
	locked, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w (could not lock %s)", ErrLocked, l.Path)
	}
	return func() { fl.Unlock() }, nil
}

type noLock struct{}

func (noLock) Lock(context.Context) (func(), error) {
	return func() {}, nil
}

// NoLock is a Locker that never blocks.
var NoLock Locker = noLock{}

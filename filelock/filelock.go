// Package filelock provides the exclusive lock-file protocol and recovery
// procedure that LockedFileDataPersister relies on for cross-process
// serialization: a fresh *flock.Flock per acquisition, a size-1 channel for
// in-process exclusion, retried with a linear back-off and followed by
// recovery of the managed file set.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/projecteru2/core/log"

	"github.com/cocoonpersist/persist"
)

// FileLock guards one COMMITTED/NEW/OLD file triple with an exclusive lock
// file, running recovery on every successful acquisition.
type FileLock struct {
	lockPath      string
	committedPath string
	newPath       string
	oldPath       string
	numRetries    int
	retryDelay    time.Duration

	ch chan struct{}
	fl *flock.Flock
}

// New creates a FileLock. committedPath is the COMMITTED file; newPath and
// oldPath are its .new/.old siblings; lockPath is the .lck sentinel.
func New(lockPath, committedPath, newPath, oldPath string, numRetries int, retryDelay time.Duration) *FileLock {
	return &FileLock{
		lockPath:      lockPath,
		committedPath: committedPath,
		newPath:       newPath,
		oldPath:       oldPath,
		numRetries:    numRetries,
		retryDelay:    retryDelay,
		ch:            make(chan struct{}, 1),
	}
}

// Release is returned by Acquire; calling it more than once is safe.
type Release func()

// Acquire opens the lock file exclusively, retrying up to numRetries times
// with delay attempt*retryDelay between attempts, then runs recovery on the
// managed file set. If ctx is cancelled before the lock is held, Acquire
// returns a no-op Release and ctx.Err(). If every retry is exhausted,
// Acquire returns persist.ErrLockUnavailable. Recovery failures are also
// returned as an error — the caller is expected to capture them into a
// LoadResult/UpdateResult rather than crash.
func (l *FileLock) Acquire(ctx context.Context) (Release, error) {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}

	logger := log.WithFunc("filelock.Acquire")

	fl := flock.New(l.lockPath)
	locked := false
	var lockErr error
	for attempt := 1; attempt <= l.numRetries; attempt++ {
		var err error
		locked, err = fl.TryLock()
		if err == nil && locked {
			lockErr = nil
			break
		}
		lockErr = err
		if attempt == l.numRetries {
			break
		}
		delay := time.Duration(attempt) * l.retryDelay
		logger.Warnf(ctx, "lock %s busy (attempt %d/%d), retrying in %s", l.lockPath, attempt, l.numRetries, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			<-l.ch
			return func() {}, ctx.Err()
		}
	}

	if !locked {
		<-l.ch
		if lockErr != nil {
			return func() {}, fmt.Errorf("%w: %s: %v", persist.ErrLockUnavailable, l.lockPath, lockErr)
		}
		return func() {}, fmt.Errorf("%w: %s", persist.ErrLockUnavailable, l.lockPath)
	}
	l.fl = fl

	if err := l.recover(ctx); err != nil {
		l.releaseLocked()
		return func() {}, err
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		l.releaseLocked()
	}
	return release, nil
}

func (l *FileLock) releaseLocked() {
	if l.fl != nil {
		_ = l.fl.Unlock()
		l.fl = nil
	}
	_ = os.Remove(l.lockPath) // deletion failure swallowed; next Acquire just reopens it
	select {
	case <-l.ch:
	default:
	}
}

// recover reconciles OLD/COMMITTED/NEW into {} or {COMMITTED}. It runs
// immediately after Acquire wins the lock, before any user-visible I/O.
// Applying it twice in a row is a no-op (idempotent).
func (l *FileLock) recover(ctx context.Context) error {
	logger := log.WithFunc("filelock.recover")

	o := exists(l.oldPath)
	c := exists(l.committedPath)
	n := exists(l.newPath)

	if o && c && n {
		// Anomalous three-file state: trust NEW as the most recent writer's
		// intent and discard the stale COMMITTED rather than trying to
		// reconcile all three copies.
		logger.Warnf(ctx, "recovery: %s has old+committed+new, discarding committed and deferring to roll-forward", l.committedPath)
		if err := removeIfExists(l.oldPath); err != nil {
			return err
		}
		if err := os.Rename(l.committedPath, l.oldPath); err != nil {
			return persist.WrapIO(fmt.Errorf("recovery: demote committed to old: %w", err))
		}
		o, c = true, false
	}

	if o && n {
		logger.Infof(ctx, "recovery: rolling %s forward", l.committedPath)
		if err := os.Rename(l.newPath, l.committedPath); err != nil {
			return persist.WrapIO(fmt.Errorf("recovery: roll forward: %w", err))
		}
		o, c, n = true, true, false
	}

	if o && c {
		logger.Infof(ctx, "recovery: discarding stale old copy of %s", l.committedPath)
		if err := removeIfExists(l.oldPath); err != nil {
			return err
		}
	}

	if n {
		logger.Infof(ctx, "recovery: rolling back uncommitted %s", l.newPath)
		if err := removeIfExists(l.newPath); err != nil {
			return err
		}
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return persist.WrapIO(fmt.Errorf("remove %s: %w", path, err))
	}
	return nil
}

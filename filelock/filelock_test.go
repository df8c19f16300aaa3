package filelock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func newLock(dir *fs.Dir) *FileLock {
	committed := dir.Join("value")
	return New(committed+".lck", committed, committed+".new", committed+".old", 3, 5*time.Millisecond)
}

func TestAcquireOnFreshDirIsNoOp(t *testing.T) {
	dir := fs.NewDir(t, "filelock")
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	assertAbsent(t, dir.Join("value"), dir.Join("value.new"), dir.Join("value.old"), dir.Join("value.lck"))
}

func TestRecoverRollsForwardFromOldAndNew(t *testing.T) {
	dir := fs.NewDir(t, "filelock",
		fs.WithFile("value.old", "stale-committed"),
		fs.WithFile("value.new", "fresh-write"),
	)
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	assertContent(t, dir.Join("value"), "fresh-write")
	assertAbsent(t, dir.Join("value.old"), dir.Join("value.new"))
}

func TestRecoverDiscardsStaleOldWhenCommittedExists(t *testing.T) {
	dir := fs.NewDir(t, "filelock",
		fs.WithFile("value", "committed"),
		fs.WithFile("value.old", "stale"),
	)
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	assertContent(t, dir.Join("value"), "committed")
	assertAbsent(t, dir.Join("value.old"))
}

func TestRecoverRollsBackUncommittedNew(t *testing.T) {
	dir := fs.NewDir(t, "filelock",
		fs.WithFile("value", "committed"),
		fs.WithFile("value.new", "half-written"),
	)
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	assertContent(t, dir.Join("value"), "committed")
	assertAbsent(t, dir.Join("value.new"))
}

func TestRecoverThreeFileAnomalyTrustsNew(t *testing.T) {
	dir := fs.NewDir(t, "filelock",
		fs.WithFile("value", "committed"),
		fs.WithFile("value.old", "old"),
		fs.WithFile("value.new", "newest"),
	)
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	assertContent(t, dir.Join("value"), "newest")
	assertAbsent(t, dir.Join("value.old"), dir.Join("value.new"))
}

func TestRecoverIsIdempotent(t *testing.T) {
	dir := fs.NewDir(t, "filelock",
		fs.WithFile("value.old", "stale-committed"),
		fs.WithFile("value.new", "fresh-write"),
	)
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release()

	release2, err := l.Acquire(context.Background())
	assert.NilError(t, err)
	release2()

	assertContent(t, dir.Join("value"), "fresh-write")
	assertAbsent(t, dir.Join("value.old"), dir.Join("value.new"))
}

func TestAcquireReleasesLockFileOnRelease(t *testing.T) {
	dir := fs.NewDir(t, "filelock")
	defer dir.Remove()

	l := newLock(dir)
	release, err := l.Acquire(context.Background())
	assert.NilError(t, err)

	// A second acquisition from a fresh FileLock instance targeting the
	// same paths must succeed once the first is released.
	release()

	l2 := newLock(dir)
	release2, err := l2.Acquire(context.Background())
	assert.NilError(t, err)
	release2()
}

func TestAcquirePropagatesCancellation(t *testing.T) {
	dir := fs.NewDir(t, "filelock")
	defer dir.Remove()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newLock(dir)
	l.ch <- struct{}{} // occupy the in-process gate so Acquire blocks on ctx.Done
	defer func() { <-l.ch }()

	_, err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(got), want)
}

func assertAbsent(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			t.Fatalf("expected %s to be absent", filepath.Base(p))
		} else if !os.IsNotExist(err) {
			t.Fatalf("stat %s: %v", p, err)
		}
	}
}

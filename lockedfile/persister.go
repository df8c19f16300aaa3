// Package lockedfile implements the transactional core: Persister loads and
// updates a single typed value stored under path, using filelock.FileLock
// for the on-disk four-file commit protocol and an in-process mutex to
// totally order operations against one instance.
package lockedfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/projecteru2/core/log"

	"github.com/cocoonpersist/persist"
	"github.com/cocoonpersist/persist/filelock"
)

// Persister is a transactional, crash-safe persister for one typed value.
type Persister[T any] struct {
	path     string
	read     persist.ReadFunc[T]
	write    persist.WriteFunc[T]
	comparer persist.Comparer[T]
	settings persist.FileDataPersisterSettings

	lock *filelock.FileLock

	mu           sync.Mutex // serializes Load/Update on this instance
	cachedResult *persist.LoadResult[T]
	cachedFile   *os.File
}

var _ persist.DataPersister[int] = (*Persister[int])(nil)

// New builds a Persister rooted at path, with COMMITTED=path, NEW=path+".new",
// OLD=path+".old", LOCK=path+".lck".
func New[T any](path string, read persist.ReadFunc[T], write persist.WriteFunc[T], comparer persist.Comparer[T], settings persist.FileDataPersisterSettings) *Persister[T] {
	if settings.NumRetries <= 0 {
		settings.NumRetries = persist.DefaultSettings().NumRetries
	}
	if settings.RetryDelay <= 0 {
		settings.RetryDelay = persist.DefaultSettings().RetryDelay
	}
	return &Persister[T]{
		path:     path,
		read:     read,
		write:    write,
		comparer: comparer,
		settings: settings,
		lock:     filelock.New(path+".lck", path, path+".new", path+".old", settings.NumRetries, settings.RetryDelay),
	}
}

func (p *Persister[T]) newPath() string { return p.path + ".new" }
func (p *Persister[T]) oldPath() string { return p.path + ".old" }

// Close invalidates and closes the exclusive-mode cache, if any. Callers
// that construct a Persister for the lifetime of a process should call this
// on shutdown to release the retained COMMITTED handle.
func (p *Persister[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalidateCache()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Load implements persist.DataPersister.
func (p *Persister[T]) Load(ctx context.Context) (persist.LoadResult[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	release, err := p.lock.Acquire(ctx)
	if err != nil {
		if isCancellation(err) {
			return persist.LoadResult[T]{}, err
		}
		return persist.ErrorResult[T](err, p.comparer), nil
	}
	defer release()

	return p.loadLocked(ctx), nil
}

// loadLocked assumes the caller holds mu and the FileLock, and that recovery
// has already run for this acquisition.
func (p *Persister[T]) loadLocked(ctx context.Context) persist.LoadResult[T] {
	if p.cachedResult != nil {
		return *p.cachedResult
	}

	flags := os.O_RDONLY
	if p.settings.ExclusiveMode {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(p.path, flags, 0o644) //nolint:gosec // path is caller-supplied by design
	if err != nil {
		if os.IsNotExist(err) {
			return persist.Absent[T](p.comparer)
		}
		return persist.ErrorResult[T](persist.WrapIO(err), p.comparer)
	}

	var stream io.Reader = f
	if p.settings.ExclusiveMode {
		stream = nonClosingStream{f}
	} else {
		defer f.Close() //nolint:errcheck
	}

	v, err := p.read(ctx, stream)
	if err != nil {
		if p.settings.ExclusiveMode {
			_ = f.Close()
		}
		return persist.ErrorResult[T](persist.WrapDeserialize(err), p.comparer)
	}

	res := persist.Present(v, p.comparer)
	if p.settings.ExclusiveMode {
		p.cachedFile = f
		p.cachedResult = &res
	}
	return res
}

func (p *Persister[T]) invalidateCache() error {
	var err error
	if p.cachedFile != nil {
		err = p.cachedFile.Close()
		p.cachedFile = nil
	}
	p.cachedResult = nil
	return err
}

// Update implements persist.DataPersister.
func (p *Persister[T]) Update(ctx context.Context, correlationTag any, fn persist.UpdateFunc[T]) (persist.UpdateResult[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := log.WithFunc("lockedfile.Update")

	release, err := p.lock.Acquire(ctx)
	if err != nil {
		if isCancellation(err) {
			return persist.UpdateResult[T]{}, err
		}
		errRes := persist.ErrorResult[T](err, p.comparer)
		return persist.UpdateResult[T]{Previous: errRes, Updated: errRes}, nil
	}
	defer release()

	read := p.loadLocked(ctx)
	tc := persist.NewTransactionContext(read, correlationTag)

	if err := fn(ctx, tc); err != nil {
		if isCancellation(err) {
			return persist.UpdateResult[T]{}, err
		}
		return persist.UpdateResult[T]{
			Previous: read,
			Updated:  persist.ErrorResult[T](persist.WrapCallback(err), p.comparer),
		}, nil
	}

	if !tc.IsCommitted() {
		return persist.UpdateResult[T]{IsUpdated: false, Previous: read, Updated: read}, nil
	}

	// Step 4: invalidate the exclusive-mode cache before any write.
	if err := p.invalidateCache(); err != nil {
		logger.Warnf(ctx, "close cached handle for %s: %v", p.path, err)
	}

	if tc.IsRemoved() {
		if _, statErr := os.Stat(p.path); statErr == nil {
			if err := os.Remove(p.path); err != nil {
				return persist.UpdateResult[T]{
					Previous: read,
					Updated:  persist.ErrorResult[T](persist.WrapIO(err), p.comparer),
				}, nil
			}
			logger.Infof(ctx, "removed %s", p.path)
			updated := persist.Absent[T](p.comparer).WithCorrelationTag(correlationTag)
			return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: updated}, nil
		}
		tc.Reset()
		return persist.UpdateResult[T]{IsUpdated: false, Previous: read, Updated: read}, nil
	}

	value := tc.CommittedValue()
	if err := p.writeNew(ctx, value); err != nil {
		return persist.UpdateResult[T]{Previous: read, Updated: persist.ErrorResult[T](err, p.comparer)}, nil
	}

	if err := p.pivot(); err != nil {
		return persist.UpdateResult[T]{Previous: read, Updated: persist.ErrorResult[T](err, p.comparer)}, nil
	}
	logger.Infof(ctx, "committed %s", p.path)

	updated := p.reestablishCache(value, correlationTag)
	return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: updated}, nil
}

func (p *Persister[T]) writeNew(ctx context.Context, v T) error {
	f, err := os.OpenFile(p.newPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec
	if err != nil {
		return persist.WrapIO(err)
	}

	if err := p.write(ctx, v, nonClosingStream{f}); err != nil {
		_ = f.Close()
		_ = os.Remove(p.newPath())
		return persist.WrapSerialize(err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return persist.WrapIO(err)
	}
	if err := f.Close(); err != nil {
		return persist.WrapIO(err)
	}
	return nil
}

// pivot executes the commit rename sequence as a synchronous,
// non-cancellable block: the first rename is the durability point recovery
// relies on, so cancellation is never checked here.
func (p *Persister[T]) pivot() error {
	dir := filepath.Dir(p.path)
	if _, err := os.Stat(p.path); err == nil {
		if err := os.Rename(p.path, p.oldPath()); err != nil {
			return persist.WrapIO(err)
		}
		_ = syncDir(dir)
		if err := os.Rename(p.newPath(), p.path); err != nil {
			return persist.WrapIO(err)
		}
		_ = syncDir(dir)
		if err := os.Remove(p.oldPath()); err != nil {
			return persist.WrapIO(err)
		}
		return nil
	}
	if err := os.Rename(p.newPath(), p.path); err != nil {
		return persist.WrapIO(err)
	}
	_ = syncDir(dir)
	return nil
}

// syncDir fsyncs a directory so a rename or create within it survives a
// crash — a bare file fsync does not guarantee the directory entry itself
// is durable. Some filesystems reject fsync on a directory descriptor
// outright; that failure is not itself a commit failure, just a lost
// durability margin, so callers ignore the returned error.
func syncDir(dir string) error {
	f, err := os.Open(dir) //nolint:gosec // dir is derived from the persister's own managed path
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if err := f.Sync(); err != nil &&
		!errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) && !errors.Is(err, syscall.EBADF) {
		return err
	}
	return nil
}

func (p *Persister[T]) reestablishCache(v T, tag any) persist.LoadResult[T] {
	res := persist.Present(v, p.comparer).WithCorrelationTag(tag)
	if !p.settings.ExclusiveMode {
		return res
	}
	f, err := os.OpenFile(p.path, os.O_RDWR, 0o644) //nolint:gosec
	if err != nil {
		// The commit already succeeded; failing to re-open for caching is
		// not itself an update failure, just a lost optimization.
		return res
	}
	p.cachedFile = f
	p.cachedResult = &res
	return res
}

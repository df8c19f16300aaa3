package persist

import (
	"context"
	"os"
	"sync"
)

// FileDataReader is a read-only, shared-read loader from a single file. When
// constructed with immutable=true it memoizes the first Present result and
// serves it to every later Load. The mutex guards only the cache slot, not
// the read itself, so concurrent first loads may each read the file.
type FileDataReader[T any] struct {
	path      string
	read      ReadFunc[T]
	comparer  Comparer[T]
	immutable bool

	mu     sync.Mutex
	cached *LoadResult[T]
}

// NewFileDataReader builds a FileDataReader over path.
func NewFileDataReader[T any](path string, read ReadFunc[T], comparer Comparer[T], immutable bool) *FileDataReader[T] {
	return &FileDataReader[T]{path: path, read: read, comparer: comparer, immutable: immutable}
}

// Load returns the memoized result when immutable and already loaded once;
// otherwise it reads the file fresh. A missing file yields Absent; any other
// failure yields a captured Error. The only propagated error is context
// cancellation.
func (r *FileDataReader[T]) Load(ctx context.Context) (LoadResult[T], error) {
	if r.immutable {
		r.mu.Lock()
		if r.cached != nil {
			cached := *r.cached
			r.mu.Unlock()
			return cached, nil
		}
		r.mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return LoadResult[T]{}, err
	}

	res := r.loadOnce(ctx)

	if r.immutable && res.IsPresent() {
		r.mu.Lock()
		if r.cached == nil {
			cached := res
			r.cached = &cached
		}
		r.mu.Unlock()
	}
	return res, nil
}

func (r *FileDataReader[T]) loadOnce(ctx context.Context) LoadResult[T] {
	f, err := os.Open(r.path) //nolint:gosec // path is caller-supplied by design
	if err != nil {
		if os.IsNotExist(err) {
			return Absent[T](r.comparer)
		}
		return ErrorResult[T](wrapIO(err), r.comparer)
	}
	defer f.Close() //nolint:errcheck

	v, err := r.read(ctx, f)
	if err != nil {
		return ErrorResult[T](wrapDeserialize(err), r.comparer)
	}
	return Present(v, r.comparer)
}

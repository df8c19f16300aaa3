package persist

import (
	"context"
	"io"
)

// ReadFunc deserializes a value from stream. The persister owns stream
// lifetime and positioning; implementations must not close stream.
type ReadFunc[T any] func(ctx context.Context, stream io.Reader) (T, error)

// WriteFunc serializes v to stream. The persister owns stream lifetime and
// positioning; implementations must not close stream.
type WriteFunc[T any] func(ctx context.Context, v T, stream io.Writer) error

// UpdateFunc is the callback passed to DataPersister.Update. It must invoke
// at most one of TransactionContext.Commit or TransactionContext.RemoveAndCommit.
// An error return that is not a context cancellation is captured into the
// resulting UpdateResult's Updated field rather than propagated.
type UpdateFunc[T any] func(ctx context.Context, tc *TransactionContext[T]) error

// Reader is the read-only half of DataPersister — satisfied by both a full
// DataPersister and a FileDataReader, so decorators can accept either as a
// reference source.
type Reader[T any] interface {
	Load(ctx context.Context) (LoadResult[T], error)
}

// DataPersister is the caller-facing contract: Load reads the current
// value, Update performs an atomic read-modify-write. Both never return a
// non-nil error except when ctx was cancelled — every other failure is
// captured into the returned LoadResult/UpdateResult.
type DataPersister[T any] interface {
	Reader[T]
	Update(ctx context.Context, correlationTag any, fn UpdateFunc[T]) (UpdateResult[T], error)
}

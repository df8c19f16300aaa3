package decorator

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/cocoonpersist/persist"
)

// Versioned is implemented by values the Versionable decorator manages: an
// integer denoting the shape of the value's serialized form.
type Versioned interface {
	FormatVersion() int
}

// Versionable decorates a writable inner persister with an immutable
// reference source. When the reference is present and its format version
// differs from (or the local value is absent relative to) the local one, the
// reference is preferred — both for Load and for the value a caller's
// Update callback sees — so a bumped reference version is always migrated
// forward on the next write while atomicity on disk is preserved.
type Versionable[T Versioned] struct {
	inner     persist.DataPersister[T]
	reference persist.Reader[T]
	refGroup  singleflight.Group
}

var _ persist.DataPersister[versionedInt] = (*Versionable[versionedInt])(nil)

// versionedInt exists only to let the compile-time interface check above
// instantiate Versionable with a concrete Versioned type.
type versionedInt int

func (versionedInt) FormatVersion() int { return 0 }

// NewVersionable builds a Versionable decorator around inner, consulting
// reference for the canonical current value.
func NewVersionable[T Versioned](inner persist.DataPersister[T], reference persist.Reader[T]) *Versionable[T] {
	return &Versionable[T]{inner: inner, reference: reference}
}

// shouldUseReference reports true iff ref is Present and either local is
// Absent or the two format versions differ.
func shouldUseReference[T Versioned](ref, local persist.LoadResult[T]) bool {
	refV, ok := ref.Value()
	if !ok {
		return false
	}
	localV, ok := local.Value()
	if !ok {
		return true
	}
	return localV.FormatVersion() != refV.FormatVersion()
}

// loadReference collapses concurrent reference loads issued while one is
// already in flight onto a single call, so N callers racing to migrate off
// the same stale local value cost one reference read rather than N.
func (v *Versionable[T]) loadReference(ctx context.Context) (persist.LoadResult[T], error) {
	res, err, _ := v.refGroup.Do("reference", func() (any, error) {
		return v.reference.Load(ctx)
	})
	if err != nil {
		return persist.LoadResult[T]{}, err
	}
	return res.(persist.LoadResult[T]), nil
}

// Load implements persist.DataPersister.
func (v *Versionable[T]) Load(ctx context.Context) (persist.LoadResult[T], error) {
	local, err := v.inner.Load(ctx)
	if err != nil {
		return persist.LoadResult[T]{}, err
	}
	ref, err := v.loadReference(ctx)
	if err != nil {
		return persist.LoadResult[T]{}, err
	}
	if shouldUseReference(ref, local) {
		return ref, nil
	}
	return local, nil
}

// Update implements persist.DataPersister. Inside the inner callback, when
// the reference should be preferred, the caller's callback is invoked
// against a second TransactionContext seeded from the reference value; any
// Commit/RemoveAndCommit on it is mirrored onto the real (local) context so
// atomicity on disk is preserved even though two contexts existed.
func (v *Versionable[T]) Update(ctx context.Context, correlationTag any, fn persist.UpdateFunc[T]) (persist.UpdateResult[T], error) {
	return v.inner.Update(ctx, correlationTag, func(ctx context.Context, localTC *persist.TransactionContext[T]) error {
		ref, err := v.loadReference(ctx)
		if err != nil {
			return err
		}

		if !shouldUseReference(ref, localTC.Read) {
			return fn(ctx, localTC)
		}

		refTC := persist.NewTransactionContext(ref, localTC.TransactionCorrelationTag)
		if err := fn(ctx, refTC); err != nil {
			return err
		}
		switch {
		case refTC.IsRemoved():
			localTC.RemoveAndCommit()
		case refTC.IsCommitted():
			localTC.Commit(refTC.CommittedValue())
		}
		return nil
	})
}

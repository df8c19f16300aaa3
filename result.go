package persist

import "reflect"

// Comparer reports whether a and b are equal for the purposes of change
// detection inside TransactionContext.Commit and for LoadResult equality.
// A nil Comparer falls back to reflect.DeepEqual.
type Comparer[T any] func(a, b T) bool

func resolveComparer[T any](cmp Comparer[T]) Comparer[T] {
	if cmp != nil {
		return cmp
	}
	return func(a, b T) bool { return reflect.DeepEqual(a, b) }
}

type resultKind uint8

const (
	kindAbsent resultKind = iota
	kindPresent
	kindError
)

// LoadResult is an immutable tri-state record: present with a value, absent,
// or holding a captured error. Exactly one state holds at a time.
type LoadResult[T any] struct {
	kind           resultKind
	value          T
	err            error
	correlationTag any
	comparer       Comparer[T]
}

// Present builds a LoadResult carrying v.
func Present[T any](v T, comparer Comparer[T]) LoadResult[T] {
	return LoadResult[T]{kind: kindPresent, value: v, comparer: comparer}
}

// Absent builds a LoadResult reporting no value exists.
func Absent[T any](comparer Comparer[T]) LoadResult[T] {
	return LoadResult[T]{kind: kindAbsent, comparer: comparer}
}

// ErrorResult builds a LoadResult carrying a captured error. err must not be nil.
func ErrorResult[T any](err error, comparer Comparer[T]) LoadResult[T] {
	return LoadResult[T]{kind: kindError, err: err, comparer: comparer}
}

// IsPresent reports whether the result carries a value.
func (r LoadResult[T]) IsPresent() bool { return r.kind == kindPresent }

// IsAbsent reports whether the result represents "no value".
func (r LoadResult[T]) IsAbsent() bool { return r.kind == kindAbsent }

// IsError reports whether the result carries a captured error.
func (r LoadResult[T]) IsError() bool { return r.kind == kindError }

// Value returns the carried value and true when IsPresent, or the zero value
// and false otherwise.
func (r LoadResult[T]) Value() (T, bool) {
	if r.kind != kindPresent {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the captured error, or nil when IsError is false.
func (r LoadResult[T]) Err() error { return r.err }

// CorrelationTag returns the opaque tag threaded through from the operation
// that produced this result. It is runtime-only and never persisted.
func (r LoadResult[T]) CorrelationTag() any { return r.correlationTag }

// WithCorrelationTag returns a copy of r carrying tag.
func (r LoadResult[T]) WithCorrelationTag(tag any) LoadResult[T] {
	r.correlationTag = tag
	return r
}

// Comparer returns the equality comparer associated with r, defaulting to
// reflect.DeepEqual when none was supplied.
func (r LoadResult[T]) Comparer() Comparer[T] { return resolveComparer(r.comparer) }

// Equal compares is_present, is_error, and — when both present — the values
// under the provider's comparer. Error identity is never part of equality.
func (r LoadResult[T]) Equal(other LoadResult[T]) bool {
	if r.kind != other.kind {
		return false
	}
	if r.kind != kindPresent {
		return true
	}
	cmp := r.comparer
	if cmp == nil {
		cmp = other.comparer
	}
	return resolveComparer(cmp)(r.value, other.value)
}

// UpdateResult is the immutable outcome of one Update call.
type UpdateResult[T any] struct {
	// IsUpdated is true iff the callback committed a change that was
	// persisted (including a removal).
	IsUpdated bool
	// Previous is the snapshot read before invoking the callback.
	Previous LoadResult[T]
	// Updated is the committed state, or — when IsUpdated is false — the
	// same value as Previous, except when the Update failed, in which case
	// Updated is an Error result carrying the captured failure.
	Updated LoadResult[T]
}

// Package decorator holds two persister decorators that change what is
// observed at the storage/caller boundary: DefaultValue maps
// empty/error/default to a caller-supplied stand-in, and Versionable
// prefers an immutable reference value when its format version differs from
// the local one (or the local value is absent).
package decorator

import (
	"context"
	"reflect"

	"github.com/cocoonpersist/persist"
)

// Option is a bitmask over the DefaultValue read/write mappings.
type Option uint8

const (
	// ReadEmptyToCustomDefault surfaces Present(customDefault) when the
	// inner read is Absent.
	ReadEmptyToCustomDefault Option = 1 << iota
	// ReadErrorToCustomDefault surfaces Present(customDefault) when the
	// inner read is Error.
	ReadErrorToCustomDefault
	// ReadDefaultToCustomDefault surfaces Present(customDefault) when the
	// inner read is Present(zero value).
	ReadDefaultToCustomDefault
	// WriteDefaultToEmpty turns a commit of the type's zero value into
	// RemoveAndCommit on the inner persister.
	WriteDefaultToEmpty
	// WriteCustomDefaultToEmpty turns a commit equal to customDefault into
	// RemoveAndCommit on the inner persister.
	WriteCustomDefaultToEmpty
)

func (o Option) has(bit Option) bool { return o&bit != 0 }

// DefaultValue decorates a persist.DataPersister[T], mapping between an
// "empty/default" representation at the caller boundary and presence or
// absence at the underlying persister.
type DefaultValue[T any] struct {
	inner         persist.DataPersister[T]
	customDefault T
	zero          T
	comparer      persist.Comparer[T]
	options       Option
}

var _ persist.DataPersister[int] = (*DefaultValue[int])(nil)

// NewDefaultValue builds a DefaultValue decorator around inner. zero is the
// type's empty/default sentinel value used for ReadDefaultToCustomDefault
// and WriteDefaultToEmpty.
func NewDefaultValue[T any](inner persist.DataPersister[T], customDefault, zero T, comparer persist.Comparer[T], options Option) *DefaultValue[T] {
	return &DefaultValue[T]{inner: inner, customDefault: customDefault, zero: zero, comparer: comparer, options: options}
}

func (d *DefaultValue[T]) cmp() persist.Comparer[T] {
	if d.comparer != nil {
		return d.comparer
	}
	return func(a, b T) bool { return reflect.DeepEqual(a, b) }
}

func (d *DefaultValue[T]) mapRead(res persist.LoadResult[T]) persist.LoadResult[T] {
	cmp := d.cmp()
	switch {
	case res.IsAbsent() && d.options.has(ReadEmptyToCustomDefault):
		return persist.Present(d.customDefault, d.comparer).WithCorrelationTag(res.CorrelationTag())
	case res.IsError() && d.options.has(ReadErrorToCustomDefault):
		return persist.Present(d.customDefault, d.comparer).WithCorrelationTag(res.CorrelationTag())
	case res.IsPresent() && d.options.has(ReadDefaultToCustomDefault):
		if v, ok := res.Value(); ok && cmp(v, d.zero) {
			return persist.Present(d.customDefault, d.comparer).WithCorrelationTag(res.CorrelationTag())
		}
	}
	return res
}

// Load implements persist.DataPersister.
func (d *DefaultValue[T]) Load(ctx context.Context) (persist.LoadResult[T], error) {
	res, err := d.inner.Load(ctx)
	if err != nil {
		return persist.LoadResult[T]{}, err
	}
	return d.mapRead(res), nil
}

// Update implements persist.DataPersister. The caller's callback sees the
// read-side-mapped value; a commit is re-interpreted against the
// write-side mapping before being delegated to the inner context. Both
// halves of the returned UpdateResult are re-mapped, so Previous agrees
// with what a Load taken just before this Update would have reported, and
// Updated agrees with what a Load taken just after it will report.
func (d *DefaultValue[T]) Update(ctx context.Context, correlationTag any, fn persist.UpdateFunc[T]) (persist.UpdateResult[T], error) {
	cmp := d.cmp()

	res, err := d.inner.Update(ctx, correlationTag, func(ctx context.Context, innerTC *persist.TransactionContext[T]) error {
		mappedRead := d.mapRead(innerTC.Read)
		outerTC := persist.NewTransactionContext(mappedRead, innerTC.TransactionCorrelationTag)

		if err := fn(ctx, outerTC); err != nil {
			return err
		}
		if !outerTC.IsCommitted() {
			return nil
		}
		if outerTC.IsRemoved() {
			innerTC.RemoveAndCommit()
			return nil
		}

		v := outerTC.CommittedValue()
		if d.options.has(WriteDefaultToEmpty) && cmp(v, d.zero) {
			innerTC.RemoveAndCommit()
			return nil
		}
		if d.options.has(WriteCustomDefaultToEmpty) && cmp(v, d.customDefault) {
			innerTC.RemoveAndCommit()
			return nil
		}
		innerTC.Commit(v)
		return nil
	})
	if err != nil {
		return persist.UpdateResult[T]{}, err
	}

	return persist.UpdateResult[T]{
		IsUpdated: res.IsUpdated,
		Previous:  d.mapRead(res.Previous),
		Updated:   d.mapRead(res.Updated),
	}, nil
}

// Package memstore provides an in-memory persist.DataPersister stub — no
// file, no lock, just a mutex-guarded value — for tests and for callers that
// want the same transactional-update API without a filesystem behind it.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/cocoonpersist/persist"
)

// Store is an in-memory persist.DataPersister[T].
type Store[T any] struct {
	mu       sync.Mutex
	present  bool
	value    T
	comparer persist.Comparer[T]
}

var _ persist.DataPersister[int] = (*Store[int])(nil)

// New builds an empty Store.
func New[T any](comparer persist.Comparer[T]) *Store[T] {
	return &Store[T]{comparer: comparer}
}

// Load implements persist.DataPersister.
func (s *Store[T]) Load(_ context.Context) (persist.LoadResult[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return persist.Absent[T](s.comparer), nil
	}
	return persist.Present(s.value, s.comparer), nil
}

// Update implements persist.DataPersister.
func (s *Store[T]) Update(ctx context.Context, correlationTag any, fn persist.UpdateFunc[T]) (persist.UpdateResult[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var read persist.LoadResult[T]
	if s.present {
		read = persist.Present(s.value, s.comparer)
	} else {
		read = persist.Absent[T](s.comparer)
	}

	tc := persist.NewTransactionContext(read, correlationTag)
	if err := fn(ctx, tc); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return persist.UpdateResult[T]{}, err
		}
		return persist.UpdateResult[T]{
			Previous: read,
			Updated:  persist.ErrorResult[T](persist.WrapCallback(err), s.comparer),
		}, nil
	}

	if !tc.IsCommitted() {
		return persist.UpdateResult[T]{Previous: read, Updated: read}, nil
	}

	if tc.IsRemoved() {
		s.present = false
		var zero T
		s.value = zero
		updated := persist.Absent[T](s.comparer).WithCorrelationTag(correlationTag)
		return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: updated}, nil
	}

	s.present = true
	s.value = tc.CommittedValue()
	updated := persist.Present(s.value, s.comparer).WithCorrelationTag(correlationTag)
	return persist.UpdateResult[T]{IsUpdated: true, Previous: read, Updated: updated}, nil
}

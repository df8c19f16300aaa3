// Package reactive is a thin observation wrapper over a DataPersister: it
// relays each successful Update as an event on a channel, in commit order,
// without adding any transactional semantics of its own.
package reactive

import (
	"context"

	"github.com/cocoonpersist/persist"
)

// Persister wraps a persist.DataPersister, publishing each UpdateResult
// with IsUpdated true to Updates() in commit order. The feed happens on the
// successful return path of Update, inside the same call that performed the
// commit, so observers see events in the same order commits were applied.
type Persister[T any] struct {
	inner   persist.DataPersister[T]
	updates chan persist.UpdateResult[T]
}

var _ persist.DataPersister[int] = (*Persister[int])(nil)

// New wraps inner, buffering up to bufSize unread notifications before
// Update starts blocking publishers.
func New[T any](inner persist.DataPersister[T], bufSize int) *Persister[T] {
	return &Persister[T]{inner: inner, updates: make(chan persist.UpdateResult[T], bufSize)}
}

// Updates returns the channel of committed UpdateResults. It is closed by
// Close.
func (p *Persister[T]) Updates() <-chan persist.UpdateResult[T] { return p.updates }

// Close closes the notification channel. It does not affect the wrapped
// persister.
func (p *Persister[T]) Close() { close(p.updates) }

// Load implements persist.DataPersister by delegating to inner.
func (p *Persister[T]) Load(ctx context.Context) (persist.LoadResult[T], error) {
	return p.inner.Load(ctx)
}

// Update implements persist.DataPersister: it delegates to inner and, on a
// successful commit, publishes the result before returning. If ctx is done
// while the channel is full, the notification is dropped.
func (p *Persister[T]) Update(ctx context.Context, correlationTag any, fn persist.UpdateFunc[T]) (persist.UpdateResult[T], error) {
	res, err := p.inner.Update(ctx, correlationTag, fn)
	if err != nil {
		return res, err
	}
	if res.IsUpdated {
		select {
		case p.updates <- res:
		case <-ctx.Done():
		}
	}
	return res, nil
}

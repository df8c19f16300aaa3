package persist

import (
	"errors"
	"fmt"
)

// ErrLockUnavailable is captured into a LoadResult/UpdateResult when the
// lock file could not be acquired within the configured retry budget.
var ErrLockUnavailable = errors.New("persist: lock unavailable")

// ErrDeserialize, ErrSerialize, ErrIO, and ErrCallback are the error kinds
// the wrap helpers below tag an underlying error with; match them with
// errors.Is.
var (
	ErrDeserialize = errors.New("persist: deserialize")
	ErrSerialize   = errors.New("persist: serialize")
	ErrIO          = errors.New("persist: io")
	ErrCallback    = errors.New("persist: callback")
)

func wrapDeserialize(err error) error { return fmt.Errorf("%w: %w", ErrDeserialize, err) }
func wrapSerialize(err error) error   { return fmt.Errorf("%w: %w", ErrSerialize, err) }
func wrapIO(err error) error          { return fmt.Errorf("%w: %w", ErrIO, err) }
func wrapCallback(err error) error    { return fmt.Errorf("%w: %w", ErrCallback, err) }

// WrapDeserialize, WrapSerialize, WrapIO, and WrapCallback tag an underlying
// error with an error kind, so callers can classify a captured
// LoadResult/UpdateResult error without string matching. They are exported
// so the filelock and lockedfile packages — which perform the actual I/O —
// can produce errors classified the same way.
func WrapDeserialize(err error) error { return wrapDeserialize(err) }
func WrapSerialize(err error) error   { return wrapSerialize(err) }
func WrapIO(err error) error          { return wrapIO(err) }
func WrapCallback(err error) error    { return wrapCallback(err) }

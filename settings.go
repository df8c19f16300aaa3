package persist

import "time"

// FileDataPersisterSettings configures a LockedFileDataPersister's lock
// acquisition and caching behavior.
type FileDataPersisterSettings struct {
	// NumRetries is the maximum number of attempts to acquire the lock file.
	NumRetries int
	// RetryDelay is the base linear back-off between attempts: attempt n
	// waits n * RetryDelay.
	RetryDelay time.Duration
	// ExclusiveMode, when true, keeps COMMITTED open read-write between
	// operations and caches the deserialized LoadResult in memory. The
	// retained handle does not deny other processes access to the file, and
	// the cached result is served without re-reading it.
	ExclusiveMode bool
}

// DefaultSettings returns the recommended default configuration: 3 retries,
// 100ms base delay, exclusive mode on.
func DefaultSettings() FileDataPersisterSettings {
	return FileDataPersisterSettings{
		NumRetries:    3,
		RetryDelay:    100 * time.Millisecond,
		ExclusiveMode: true,
	}
}

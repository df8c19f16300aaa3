// Package persist implements a transactional single-value file persister:
// crash-safe, concurrency-safe atomic reads and updates of one typed value
// stored in a single file on an ordinary filesystem.
//
// The core contract is DataPersister[T]: Load reads the current value,
// Update performs an atomic read-modify-write through a TransactionContext
// callback. The on-disk protocol, recovery rules, and locking live in the
// filelock and lockedfile subpackages; decorator holds the default-value and
// versionable wrappers described alongside the core contract.
package persist

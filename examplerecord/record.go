// Package examplerecord defines the sample versioned value used by
// persistctl's demo command and by the package tests: a small JSON record
// with a format_version field, standing in for whatever settings payload a
// caller actually wants to persist.
package examplerecord

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Record is a demo value stored through a persist.DataPersister. Its
// FormatVersion satisfies decorator.Versioned.
type Record struct {
	ID        string    `json:"id"`
	Payload   string    `json:"payload"`
	Version   int       `json:"format_version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormatVersion implements decorator.Versioned.
func (r Record) FormatVersion() int { return r.Version }

// Equal is the equality comparer plugged into persist.LoadResult /
// TransactionContext.Commit for Record: two records are equal when their
// ID, Payload, and Version agree (UpdatedAt is metadata, not content).
func Equal(a, b Record) bool {
	return a.ID == b.ID && a.Payload == b.Payload && a.Version == b.Version
}

// Read implements persist.ReadFunc[Record].
func Read(_ context.Context, stream io.Reader) (Record, error) {
	var r Record
	if err := json.NewDecoder(stream).Decode(&r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Write implements persist.WriteFunc[Record].
func Write(_ context.Context, r Record, stream io.Writer) error {
	return json.NewEncoder(stream).Encode(r)
}

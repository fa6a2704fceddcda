package storage

import "errors"

// Sentinels shared by the event log and trade store backends. Records are
// never rewritten, so a second write under the same key is an error.
var (
	// ErrNotFound means the log is empty or no record matches the lookup.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey means a record already exists at that seq (event log)
	// or (market, seq) (trade store).
	ErrDuplicateKey = errors.New("storage: record already written")

	// ErrInvalidInput means the record is nil or misses its key fields.
	ErrInvalidInput = errors.New("storage: malformed record")
)

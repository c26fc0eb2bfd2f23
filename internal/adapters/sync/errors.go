package sync

import "errors"

// Sentinel kinds for adapter errors. These allow errors.Is/As from callers.
var (
	// ErrNotFound reports an absent room or record. Surfaced to the
	// caller as "return to entry".
	ErrNotFound = errors.New("record not found")

	// ErrConflict reports a uniqueness violation, e.g. a second answer
	// from the same player in one turn. Callers ignore it where the
	// surface already prevents double submission.
	ErrConflict = errors.New("record conflict")

	// ErrClosed reports use of a closed client.
	ErrClosed = errors.New("sync client closed")
)

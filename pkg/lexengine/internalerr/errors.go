// Package internalerr holds the sentinel errors shared across lexengine's
// packages so callers can classify failures with errors.Is instead of
// parsing messages.
package internalerr

import "errors"

// Sentinel errors for common cases.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrInvariant marks a write that was rejected to protect a data model
	// invariant (e.g. deleting the last profile, non-unique position).
	ErrInvariant = errors.New("invariant violation")

	// ErrStorage marks an I/O-level failure during a store operation.
	ErrStorage = errors.New("storage error")

	// ErrStructuralImport marks a fatal, whole-archive import failure
	// (corrupt header, unreadable index). The dictionary is never created.
	ErrStructuralImport = errors.New("structural import error")

	// ErrCanceled marks an operation that stopped because its context was
	// canceled, distinct from other failure kinds.
	ErrCanceled = errors.New("canceled")

	// ErrDecodeSkipped marks a decode-time failure for a record whose kind
	// tag isn't recognized. Lookup treats this as skip-not-abort.
	ErrDecodeSkipped = errors.New("unknown record kind")
)

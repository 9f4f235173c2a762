// Package importer transforms third-party dictionary archives (Yomitan
// term banks, Yomichan audio packs) into Store insertions: parse, then
// stream every entry into a single transaction, reporting progress events
// and counting per-entry errors along the way.
package importer

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/semaphore"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// Format identifies a detected archive layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatYomitan
	FormatYomichanAudioZip
	FormatYomichanAudioTarXZ
)

func (f Format) String() string {
	switch f {
	case FormatYomitan:
		return "yomitan"
	case FormatYomichanAudioZip, FormatYomichanAudioTarXZ:
		return "yomichan-audio"
	default:
		return "unknown"
	}
}

// EventKind tags one notification emitted during an import.
type EventKind int

const (
	EventDeterminedKind EventKind = iota
	EventParsedMeta
	EventProgress
	EventDone
)

// Event is one notification delivered through a Callback. Only the
// field(s) relevant to Kind are populated.
type Event struct {
	Kind     EventKind
	Format   Format
	Meta     store.DictionaryMeta
	Fraction float64 // EventProgress: in [0, 1]
	// EntryErrors accompanies EventDone: the count of non-fatal per-entry
	// errors encountered (malformed rows, counted but not aborting).
	EntryErrors int
}

// Callback receives import progress notifications. It must not block; the
// importer delivers events synchronously and a slow callback stalls the
// import itself (callers buffer if they need to decouple).
type Callback func(Event)

// Source supplies random-access bytes for an archive. Open may be called
// more than once if a format needs to rewind (e.g. peeking for format
// detection, then parsing from the start).
type Source interface {
	Open() (io.ReaderAt, int64, error)
}

// Limiter bounds the number of simultaneous imports (default cap: 4),
// so a burst of import requests backs off instead of exhausting memory
// and database connections.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter builds a Limiter with the given concurrency cap. A
// non-positive cap defaults to 4.
func NewLimiter(maxConcurrent int64) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Limiter{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Import acquires a concurrency slot, then runs Import. It blocks until a
// slot is available or ctx is canceled.
func (l *Limiter) Import(ctx context.Context, st store.Store, src Source, cb Callback) (store.DictionaryID, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
	}
	defer l.sem.Release(1)
	return Import(ctx, st, src, cb)
}

// Import detects the archive format, parses its metadata, and streams its
// entries into a single store.Store import transaction. A structural
// failure (corrupt header, unreadable index) aborts before any
// transaction is opened, so no Dictionary row is created. Per-entry
// malformed rows are counted and reported via EventDone, not treated as
// fatal.
func Import(ctx context.Context, st store.Store, src Source, cb Callback) (store.DictionaryID, error) {
	if cb == nil {
		cb = func(Event) {}
	}

	ra, size, err := src.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open archive: %v", internalerr.ErrStructuralImport, err)
	}

	format, err := detectFormat(ra, size)
	if err != nil {
		return 0, fmt.Errorf("%w: detect format: %v", internalerr.ErrStructuralImport, err)
	}
	cb(Event{Kind: EventDeterminedKind, Format: format})

	switch format {
	case FormatYomitan:
		return importYomitan(ctx, st, ra, size, cb)
	case FormatYomichanAudioZip, FormatYomichanAudioTarXZ:
		return importYomichanAudio(ctx, st, ra, size, format, cb)
	default:
		return 0, fmt.Errorf("%w: unrecognized archive format", internalerr.ErrStructuralImport)
	}
}

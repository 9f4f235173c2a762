// Package lookup composes the deinflector (C4) with the store (C1/C2)
// into the top-level term lookup operation: candidates in, a merged and
// ranked result assembly out.
package lookup

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/deinflect"
	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// Hit is a single decoded, ranked lookup result: the store's raw Hit plus
// the candidate scan length and decoded record payload.
type Hit struct {
	store.Hit
	ScanLength int
	Record     codec.Record
}

// Engine composes an Analyzer with a Store to answer term lookups.
type Engine struct {
	Store    store.Store
	Analyzer deinflect.Analyzer

	// Logger receives warnings for skipped records (unknown kind, decode
	// failure), each tagged with the lookup call's session id. Defaults
	// to charmbracelet/log's package logger.
	Logger *log.Logger

	entropy *ulid.MonotonicEntropy
}

// New builds a lookup Engine.
func New(st store.Store, analyzer deinflect.Analyzer) *Engine {
	return &Engine{
		Store:    st,
		Analyzer: analyzer,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

func (e *Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// sessionID mints a monotonic ULID identifying one Lookup call, so log
// lines from the same call can be correlated.
func (e *Engine) sessionID() string {
	return ulid.MustNew(ulid.Now(), e.entropy).String()
}

// Lookup asks the analyzer for candidates (longest scan first), queries
// the store for each in order, decodes every record (skipping unknown
// kinds rather than aborting), and deduplicates
// by RecordID so the first — longest-scan — occurrence wins.
func (e *Engine) Lookup(ctx context.Context, profile store.ProfileID, sentence string, cursor int, wantedKinds []uint8) ([]Hit, error) {
	sid := e.sessionID()
	candidates := e.Analyzer.Candidates(sentence, cursor)

	seen := make(map[store.RecordID]struct{})
	var out []Hit

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
		}

		text := cand.Headword
		if text == "" {
			text = cand.Surface
		}

		storeHits, err := e.Store.QueryTerm(ctx, profile, text, wantedKinds)
		if err != nil {
			return nil, err
		}

		for _, sh := range storeHits {
			if _, dup := seen[sh.RecordID]; dup {
				continue
			}

			rec, err := codec.Decode(sh.Data)
			if err != nil {
				e.logger().Warn("skipping record with undecodable payload", "session", sid, "record", sh.RecordID, "err", err)
				continue
			}

			seen[sh.RecordID] = struct{}{}
			out = append(out, Hit{Hit: sh, ScanLength: cand.ScanLength, Record: rec})
		}
	}

	return out, nil
}

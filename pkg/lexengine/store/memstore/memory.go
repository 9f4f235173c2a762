// Package memstore is an in-memory implementation of store.Store for unit
// tests: mutex-guarded maps, no disk I/O.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

type recordRow struct {
	id     store.RecordID
	source store.DictionaryID
	kind   uint8
	data   []byte
}

type termLinkRow struct {
	source   store.DictionaryID
	record   store.RecordID
	headword string
	reading  string
}

type freqKey struct {
	source   store.DictionaryID
	headword string
	reading  string
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.RWMutex

	nextDictID store.DictionaryID
	nextRecID  store.RecordID
	nextProfID store.ProfileID

	dicts map[store.DictionaryID]store.Dictionary
	recs  map[store.RecordID]recordRow
	links []termLinkRow
	freqs map[freqKey]store.Frequency

	profiles map[store.ProfileID]store.Profile
	config   store.Config
}

// New creates an empty in-memory store, seeded with one profile and the
// config singleton, matching the persistent store's bootstrap.
func New() *Store {
	s := &Store{
		dicts:    make(map[store.DictionaryID]store.Dictionary),
		recs:     make(map[store.RecordID]recordRow),
		freqs:    make(map[freqKey]store.Frequency),
		profiles: make(map[store.ProfileID]store.Profile),
	}
	s.nextProfID = 1
	s.profiles[1] = store.Profile{ID: 1, Name: "Default", EnabledDictionaries: map[store.DictionaryID]struct{}{}}
	s.config = store.Config{CurrentProfileID: 1}
	return s
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func (s *Store) ListDictionaries(ctx context.Context) ([]store.Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Dictionary, 0, len(s.dicts))
	for _, d := range s.dicts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) DictionaryMeta(ctx context.Context, id store.DictionaryID) (store.DictionaryMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dicts[id]
	if !ok {
		return store.DictionaryMeta{}, internalerr.ErrNotFound
	}
	return d.Meta, nil
}

// memImportTx implements store.ImportTx by writing directly into the
// enclosing Store while the caller holds s.mu.
type memImportTx struct {
	s    *Store
	dict store.DictionaryID
}

func (s *Store) WithImport(ctx context.Context, fn func(store.ImportTx) error) (store.DictionaryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot state so a failed import leaves the store untouched,
	// matching the persistent store's rollback-on-error transaction.
	snapshot := s.snapshotLocked()

	itx := &memImportTx{s: s}
	if err := fn(itx); err != nil {
		s.restoreLocked(snapshot)
		return 0, err
	}
	if itx.dict == 0 {
		s.restoreLocked(snapshot)
		return 0, fmt.Errorf("%w: import did not create a dictionary", internalerr.ErrInvariant)
	}
	return itx.dict, nil
}

type storeSnapshot struct {
	nextDictID store.DictionaryID
	nextRecID  store.RecordID
	dicts      map[store.DictionaryID]store.Dictionary
	recs       map[store.RecordID]recordRow
	links      []termLinkRow
	freqs      map[freqKey]store.Frequency
}

func (s *Store) snapshotLocked() storeSnapshot {
	dicts := make(map[store.DictionaryID]store.Dictionary, len(s.dicts))
	for k, v := range s.dicts {
		dicts[k] = v
	}
	recs := make(map[store.RecordID]recordRow, len(s.recs))
	for k, v := range s.recs {
		recs[k] = v
	}
	links := make([]termLinkRow, len(s.links))
	copy(links, s.links)
	freqs := make(map[freqKey]store.Frequency, len(s.freqs))
	for k, v := range s.freqs {
		freqs[k] = v
	}
	return storeSnapshot{
		nextDictID: s.nextDictID,
		nextRecID:  s.nextRecID,
		dicts:      dicts,
		recs:       recs,
		links:      links,
		freqs:      freqs,
	}
}

func (s *Store) restoreLocked(snap storeSnapshot) {
	s.nextDictID = snap.nextDictID
	s.nextRecID = snap.nextRecID
	s.dicts = snap.dicts
	s.recs = snap.recs
	s.links = snap.links
	s.freqs = snap.freqs
}

func (t *memImportTx) CreateDictionary(ctx context.Context, meta store.DictionaryMeta) (store.DictionaryID, error) {
	s := t.s
	s.nextDictID++
	id := s.nextDictID

	maxPos := 0
	for _, d := range s.dicts {
		if d.Position > maxPos {
			maxPos = d.Position
		}
	}

	s.dicts[id] = store.Dictionary{ID: id, Meta: meta, Position: maxPos + 1}
	t.dict = id
	return id, nil
}

func (t *memImportTx) InsertRecord(ctx context.Context, dict store.DictionaryID, kind uint8, data []byte) (store.RecordID, error) {
	s := t.s
	s.nextRecID++
	id := s.nextRecID
	s.recs[id] = recordRow{id: id, source: dict, kind: kind, data: data}
	return id, nil
}

func (t *memImportTx) LinkTerm(ctx context.Context, dict store.DictionaryID, record store.RecordID, headword, reading string) error {
	if headword == "" && reading == "" {
		return fmt.Errorf("%w: term link needs headword or reading", internalerr.ErrInvariant)
	}
	s := t.s
	for _, l := range s.links {
		if l.source == dict && l.record == record && l.headword == headword && l.reading == reading {
			return nil
		}
	}
	s.links = append(s.links, termLinkRow{source: dict, record: record, headword: headword, reading: reading})
	return nil
}

func (t *memImportTx) InsertFrequency(ctx context.Context, dict store.DictionaryID, headword, reading string, mode store.FrequencyMode, value int64) error {
	s := t.s
	s.freqs[freqKey{source: dict, headword: headword, reading: reading}] = store.Frequency{
		Source: dict, Headword: headword, Reading: reading, Mode: mode, Value: value,
	}
	return nil
}

func (s *Store) SwapPositions(ctx context.Context, a, b store.DictionaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	da, ok := s.dicts[a]
	if !ok {
		return internalerr.ErrNotFound
	}
	db, ok := s.dicts[b]
	if !ok {
		return internalerr.ErrNotFound
	}
	da.Position, db.Position = db.Position, da.Position
	s.dicts[a] = da
	s.dicts[b] = db
	return nil
}

func (s *Store) DeleteDictionary(ctx context.Context, id store.DictionaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dicts[id]; !ok {
		return internalerr.ErrNotFound
	}
	delete(s.dicts, id)

	for rid, r := range s.recs {
		if r.source == id {
			delete(s.recs, rid)
		}
	}
	kept := s.links[:0]
	for _, l := range s.links {
		if l.source != id {
			kept = append(kept, l)
		}
	}
	s.links = kept
	for k := range s.freqs {
		if k.source == id {
			delete(s.freqs, k)
		}
	}

	for pid, p := range s.profiles {
		delete(p.EnabledDictionaries, id)
		if p.SortingDictionaryID != nil && *p.SortingDictionaryID == id {
			p.SortingDictionaryID = nil
		}
		s.profiles[pid] = p
	}

	return nil
}

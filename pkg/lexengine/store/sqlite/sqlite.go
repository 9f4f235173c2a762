// Package sqlite implements store.Store on top of modernc.org/sqlite, a
// pure-Go SQLite driver. Schema setup, WAL mode, and the
// upsert-then-replace-child-rows transaction shape follow the same
// pattern throughout.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// Store implements store.Store. Reads run against the shared connection
// pool; writes serialize behind writeMu, since SQLite allows only one
// writer at a time.
type Store struct {
	db *sql.DB

	writeMu sync.Mutex

	metaCache *lru.Cache[store.DictionaryID, store.DictionaryMeta]
}

// Options configures Open.
type Options struct {
	// MaxDBConnections caps the read connection pool size. Zero uses a
	// default of 8.
	MaxDBConnections int
	// MetaCacheSize caps the dictionary-metadata LRU cache. Zero uses a
	// sensible default.
	MetaCacheSize int
}

// Open opens (creating if absent) a SQLite-backed store at path, enables
// WAL journaling and foreign keys, then seeds the first profile and the
// config singleton if the database is new.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrStorage, path, err)
	}

	maxConns := opts.MaxDBConnections
	if maxConns <= 0 {
		maxConns = 8
	}
	db.SetMaxOpenConns(maxConns)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", internalerr.ErrStorage, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", internalerr.ErrStorage, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	cacheSize := opts.MetaCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[store.DictionaryID, store.DictionaryMeta](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: allocate metadata cache: %v", internalerr.ErrStorage, err)
	}

	s := &Store{db: db, metaCache: cache}

	if err := s.ensureBootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS dictionaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	version TEXT,
	description TEXT,
	url TEXT,
	attribution TEXT,
	format TEXT,
	position INTEGER NOT NULL UNIQUE CHECK (position > 0)
);

CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
	kind INTEGER NOT NULL,
	data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS term_links (
	source INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
	record INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	headword TEXT,
	reading TEXT,
	CHECK (headword IS NOT NULL OR reading IS NOT NULL),
	UNIQUE (source, headword, reading, record)
);

CREATE TABLE IF NOT EXISTS frequencies (
	source INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
	headword TEXT,
	reading TEXT,
	mode INTEGER NOT NULL,
	value INTEGER NOT NULL CHECK (value >= 0),
	UNIQUE (source, headword, reading)
);

CREATE TABLE IF NOT EXISTS profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	sorting_dictionary_id INTEGER REFERENCES dictionaries(id) ON DELETE SET NULL,
	font_family TEXT,
	anki_deck TEXT,
	anki_note_type TEXT
);

CREATE TABLE IF NOT EXISTS profile_enabled_dicts (
	profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	dict_id INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
	UNIQUE (profile_id, dict_id)
);

CREATE TABLE IF NOT EXISTS config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	current_profile_id INTEGER NOT NULL REFERENCES profiles(id) DEFERRABLE INITIALLY DEFERRED,
	texthooker_url TEXT,
	ankiconnect_url TEXT,
	api_key TEXT
);

-- Lookup indexes.
CREATE INDEX IF NOT EXISTS idx_term_links_headword_source ON term_links(headword, source);
CREATE INDEX IF NOT EXISTS idx_term_links_reading_source ON term_links(reading, source);
CREATE INDEX IF NOT EXISTS idx_frequencies_lookup ON frequencies(source, headword, reading);

-- Cascading-delete-only indexes; never used for lookup.
CREATE INDEX IF NOT EXISTS idx_term_links_source ON term_links(source);
CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
CREATE INDEX IF NOT EXISTS idx_frequencies_source ON frequencies(source);
`

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", internalerr.ErrStorage, err)
	}
	return nil
}

// ensureBootstrap creates the first profile and the config singleton if
// the database is new: a store must always have at least one profile,
// and the config singleton row must exist before any setter can touch it.
func (s *Store) ensureBootstrap(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var profileCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&profileCount); err != nil {
		return fmt.Errorf("%w: count profiles: %v", internalerr.ErrStorage, err)
	}

	var profileID int64
	if profileCount == 0 {
		res, err := s.db.ExecContext(ctx, `INSERT INTO profiles (name) VALUES (?)`, "Default")
		if err != nil {
			return fmt.Errorf("%w: seed default profile: %v", internalerr.ErrStorage, err)
		}
		profileID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: read seeded profile id: %v", internalerr.ErrStorage, err)
		}
	} else {
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM profiles ORDER BY id LIMIT 1`).Scan(&profileID); err != nil {
			return fmt.Errorf("%w: read existing profile id: %v", internalerr.ErrStorage, err)
		}
	}

	var configCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM config`).Scan(&configCount); err != nil {
		return fmt.Errorf("%w: count config: %v", internalerr.ErrStorage, err)
	}
	if configCount == 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO config (id, current_profile_id) VALUES (1, ?)`, profileID); err != nil {
			return fmt.Errorf("%w: seed config: %v", internalerr.ErrStorage, err)
		}
	}

	return nil
}

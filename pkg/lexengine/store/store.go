// Package store defines lexengine's persistence contract: dictionaries,
// records, term links, frequencies, profiles and config, plus the ranked
// term query. Concrete backends live in the sqlite and memstore
// subpackages.
package store

import "context"

// DictionaryID identifies a dictionary. Stable once assigned.
type DictionaryID int64

// RecordID identifies a single record row.
type RecordID int64

// ProfileID identifies a profile.
type ProfileID int64

// DictionaryMeta is the descriptive metadata captured at import time.
type DictionaryMeta struct {
	Name        string
	Version     string
	Description string
	URL         string
	Attribution string
	Format      string // e.g. "yomitan", "yomichan-audio"
}

// Dictionary is a stored dictionary: identity, metadata, and its position
// in the user's priority ordering (strictly positive, unique).
type Dictionary struct {
	ID       DictionaryID
	Meta     DictionaryMeta
	Position int
}

// Record is an opaque, codec-encoded payload owned by a dictionary.
// Records are created only during import and never mutated.
type Record struct {
	ID     RecordID
	Source DictionaryID
	Kind   uint8 // mirrors codec.RecordKind; kept untyped so store does not import codec
	Data   []byte
}

// TermLink associates a record with a (headword, reading) term. At least
// one of Headword/Reading must be non-empty.
type TermLink struct {
	Source   DictionaryID
	Record   RecordID
	Headword string // empty means "not set"
	Reading  string // empty means "not set"
}

// FrequencyMode mirrors codec.FrequencyMode without importing codec, to
// keep store dependency-free of the codec package (only bytes cross the
// boundary).
type FrequencyMode uint8

const (
	FrequencyRank FrequencyMode = iota + 1
	FrequencyOccurrence
)

// Frequency is a per-dictionary frequency observation for a term.
type Frequency struct {
	Source   DictionaryID
	Headword string
	Reading  string
	Mode     FrequencyMode
	Value    int64
}

// Profile is a named view over the dictionary set: which dictionaries are
// enabled, which supplies sort-order frequency data, and display prefs.
type Profile struct {
	ID                   ProfileID
	Name                 string
	SortingDictionaryID  *DictionaryID
	FontFamily           string
	AnkiDeck             string
	AnkiNoteType         string
	EnabledDictionaries  map[DictionaryID]struct{}
}

// Config is the engine-wide singleton row.
type Config struct {
	CurrentProfileID ProfileID
	TexthookerURL    string
	AnkiConnectURL   string
	APIKey           string
}

// Hit is one matched record returned by a term query, already joined
// against frequency data.
type Hit struct {
	RecordID         RecordID
	Source           DictionaryID
	Kind             uint8
	Data             []byte
	Headword         string
	Reading          string
	ProfileFrequency *Frequency // from the profile's sorting dictionary, if any
	SourceFrequency  *Frequency // from the record's own source dictionary, if any
}

// ImportTx is the narrow, write-only view of a Store that importers use
// inside a single transaction. It intentionally excludes read queries and
// profile/config mutation: an import only creates a dictionary, its
// records, term links, and frequencies.
type ImportTx interface {
	CreateDictionary(ctx context.Context, meta DictionaryMeta) (DictionaryID, error)
	InsertRecord(ctx context.Context, dict DictionaryID, kind uint8, data []byte) (RecordID, error)
	LinkTerm(ctx context.Context, dict DictionaryID, record RecordID, headword, reading string) error
	InsertFrequency(ctx context.Context, dict DictionaryID, headword, reading string, mode FrequencyMode, value int64) error
}

// Store is lexengine's full persistence contract.
type Store interface {
	Close() error

	// Dictionaries
	ListDictionaries(ctx context.Context) ([]Dictionary, error)
	// WithImport runs fn inside a single write transaction that both creates
	// a new dictionary and streams its records/links/frequencies; fn's
	// error aborts and rolls back the whole import.
	WithImport(ctx context.Context, fn func(ImportTx) error) (DictionaryID, error)
	SwapPositions(ctx context.Context, a, b DictionaryID) error
	// DeleteDictionary cascades: records, term links, frequencies, and any
	// profile reference (enabled set or sorting dictionary) are removed
	// atomically. May be long-running; callers should serialize user
	// input while it runs.
	DeleteDictionary(ctx context.Context, id DictionaryID) error

	// Profiles
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id ProfileID) (Profile, error)
	CreateProfile(ctx context.Context, name string) (ProfileID, error)
	// DeleteProfile fails with internalerr.ErrInvariant if id is the last
	// remaining profile.
	DeleteProfile(ctx context.Context, id ProfileID) error
	SetSortingDictionary(ctx context.Context, profile ProfileID, dict *DictionaryID) error
	EnableDictionary(ctx context.Context, profile ProfileID, dict DictionaryID) error
	DisableDictionary(ctx context.Context, profile ProfileID, dict DictionaryID) error
	SetAnkiDeck(ctx context.Context, profile ProfileID, deck string) error
	SetAnkiNoteType(ctx context.Context, profile ProfileID, noteType string) error

	// Config
	GetConfig(ctx context.Context) (Config, error)
	SetCurrentProfile(ctx context.Context, id ProfileID) error
	SetTexthookerURL(ctx context.Context, url string) error
	SetAnkiConnectURL(ctx context.Context, url string) error
	SetAPIKey(ctx context.Context, key string) error

	// Lookup
	// QueryTerm returns every Hit matching text under the given profile,
	// restricted to wantedKinds (empty means "all kinds"), ordered by the
	// backend's term-ranking algorithm.
	QueryTerm(ctx context.Context, profile ProfileID, text string, wantedKinds []uint8) ([]Hit, error)

	// DictionaryMeta returns one dictionary's metadata (the sqlite backend
	// serves it from an LRU cache; neither the dictionary list nor tag
	// tables are cached)
	DictionaryMeta(ctx context.Context, id DictionaryID) (DictionaryMeta, error)
}

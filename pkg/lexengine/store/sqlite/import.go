package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// importTx implements store.ImportTx against a single *sql.Tx: every
// helper takes the same ctx/tx and returns plain errors, with the caller
// (WithImport) owning commit/rollback.
type importTx struct {
	tx   *sql.Tx
	dict store.DictionaryID
}

// WithImport opens one write transaction, lets fn create the dictionary and
// stream its records/links/frequencies, and commits only if fn succeeds.
// Any error aborts the whole import: the dictionary never appears in the
// store.
func (s *Store) WithImport(ctx context.Context, fn func(store.ImportTx) error) (store.DictionaryID, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin import: %v", internalerr.ErrStorage, err)
	}
	defer tx.Rollback()

	itx := &importTx{tx: tx}
	if err := fn(itx); err != nil {
		return 0, err
	}
	if itx.dict == 0 {
		return 0, fmt.Errorf("%w: import did not create a dictionary", internalerr.ErrInvariant)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit import: %v", internalerr.ErrStorage, err)
	}

	return itx.dict, nil
}

// CreateDictionary inserts the dictionary row with the next available
// position (max+1).
func (t *importTx) CreateDictionary(ctx context.Context, meta store.DictionaryMeta) (store.DictionaryID, error) {
	var maxPos sql.NullInt64
	if err := t.tx.QueryRowContext(ctx, `SELECT MAX(position) FROM dictionaries`).Scan(&maxPos); err != nil {
		return 0, fmt.Errorf("%w: read max position: %v", internalerr.ErrStorage, err)
	}
	position := 1
	if maxPos.Valid {
		position = int(maxPos.Int64) + 1
	}

	res, err := t.tx.ExecContext(ctx, `
INSERT INTO dictionaries (name, version, description, url, attribution, format, position)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.Name, meta.Version, meta.Description, meta.URL, meta.Attribution, meta.Format, position)
	if err != nil {
		return 0, fmt.Errorf("%w: insert dictionary: %v", internalerr.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read dictionary id: %v", internalerr.ErrStorage, err)
	}

	t.dict = store.DictionaryID(id)
	return t.dict, nil
}

// InsertRecord inserts a record payload; only valid once CreateDictionary
// has run inside the same transaction.
func (t *importTx) InsertRecord(ctx context.Context, dict store.DictionaryID, kind uint8, data []byte) (store.RecordID, error) {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO records (source, kind, data) VALUES (?, ?, ?)`, dict, kind, data)
	if err != nil {
		return 0, fmt.Errorf("%w: insert record: %v", internalerr.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read record id: %v", internalerr.ErrStorage, err)
	}
	return store.RecordID(id), nil
}

// LinkTerm inserts a term link, enforcing the "at least one of
// headword/reading" invariant before it ever reaches the database CHECK
// constraint.
func (t *importTx) LinkTerm(ctx context.Context, dict store.DictionaryID, record store.RecordID, headword, reading string) error {
	if headword == "" && reading == "" {
		return fmt.Errorf("%w: term link needs headword or reading", internalerr.ErrInvariant)
	}

	var h, r any
	if headword != "" {
		h = headword
	}
	if reading != "" {
		r = reading
	}

	_, err := t.tx.ExecContext(ctx, `
INSERT INTO term_links (source, record, headword, reading) VALUES (?, ?, ?, ?)
ON CONFLICT (source, headword, reading, record) DO NOTHING`, dict, record, h, r)
	if err != nil {
		return fmt.Errorf("%w: insert term link: %v", internalerr.ErrStorage, err)
	}
	return nil
}

// InsertFrequency inserts (or replaces, per the unique key) a frequency
// observation for a term.
func (t *importTx) InsertFrequency(ctx context.Context, dict store.DictionaryID, headword, reading string, mode store.FrequencyMode, value int64) error {
	var h, r any
	if headword != "" {
		h = headword
	}
	if reading != "" {
		r = reading
	}

	_, err := t.tx.ExecContext(ctx, `
INSERT INTO frequencies (source, headword, reading, mode, value) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (source, headword, reading) DO UPDATE SET mode=excluded.mode, value=excluded.value`,
		dict, h, r, mode, value)
	if err != nil {
		return fmt.Errorf("%w: insert frequency: %v", internalerr.ErrStorage, err)
	}
	return nil
}

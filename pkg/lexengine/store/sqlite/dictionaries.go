package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// ListDictionaries returns every dictionary ordered by position ascending.
func (s *Store) ListDictionaries(ctx context.Context) ([]store.Dictionary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, version, description, url, attribution, format, position
FROM dictionaries
ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list dictionaries: %v", internalerr.ErrStorage, err)
	}
	defer rows.Close()

	var out []store.Dictionary
	for rows.Next() {
		var d store.Dictionary
		var version, desc, url, attribution, format sql.NullString
		if err := rows.Scan(&d.ID, &d.Meta.Name, &version, &desc, &url, &attribution, &format, &d.Position); err != nil {
			return nil, fmt.Errorf("%w: scan dictionary: %v", internalerr.ErrStorage, err)
		}
		d.Meta.Version = version.String
		d.Meta.Description = desc.String
		d.Meta.URL = url.String
		d.Meta.Attribution = attribution.String
		d.Meta.Format = format.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// DictionaryMeta returns cached metadata for a single dictionary, falling
// back to the database and populating the cache on a miss. DeleteDictionary
// removes the deleted dictionary's entry; imports touch no entry, since a
// new dictionary gets a fresh id. Dictionary metadata is read far more
// often than it changes.
func (s *Store) DictionaryMeta(ctx context.Context, id store.DictionaryID) (store.DictionaryMeta, error) {
	if meta, ok := s.metaCache.Get(id); ok {
		return meta, nil
	}

	var meta store.DictionaryMeta
	var version, desc, url, attribution, format sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT name, version, description, url, attribution, format
FROM dictionaries WHERE id = ?`, id).Scan(&meta.Name, &version, &desc, &url, &attribution, &format)
	if err == sql.ErrNoRows {
		return store.DictionaryMeta{}, internalerr.ErrNotFound
	}
	if err != nil {
		return store.DictionaryMeta{}, fmt.Errorf("%w: load dictionary meta: %v", internalerr.ErrStorage, err)
	}
	meta.Version = version.String
	meta.Description = desc.String
	meta.URL = url.String
	meta.Attribution = attribution.String
	meta.Format = format.String

	s.metaCache.Add(id, meta)
	return meta, nil
}

// SwapPositions exchanges the priority positions of two dictionaries
// atomically, preserving the unique-position invariant at every step by
// routing through a scratch value that can never collide with a real
// position: the position column is CHECK'd positive, so the scratch
// must itself be positive, and math.MaxInt32 is far beyond any position
// this store will ever assign.
func (s *Store) SwapPositions(ctx context.Context, a, b store.DictionaryID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin swap: %v", internalerr.ErrStorage, err)
	}
	defer tx.Rollback()

	var posA, posB int
	if err := tx.QueryRowContext(ctx, `SELECT position FROM dictionaries WHERE id = ?`, a).Scan(&posA); err != nil {
		if err == sql.ErrNoRows {
			return internalerr.ErrNotFound
		}
		return fmt.Errorf("%w: read position a: %v", internalerr.ErrStorage, err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT position FROM dictionaries WHERE id = ?`, b).Scan(&posB); err != nil {
		if err == sql.ErrNoRows {
			return internalerr.ErrNotFound
		}
		return fmt.Errorf("%w: read position b: %v", internalerr.ErrStorage, err)
	}

	const scratch = math.MaxInt32
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET position = ? WHERE id = ?`, scratch, a); err != nil {
		return fmt.Errorf("%w: scratch swap: %v", internalerr.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET position = ? WHERE id = ?`, posA, b); err != nil {
		return fmt.Errorf("%w: assign position a to b: %v", internalerr.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE dictionaries SET position = ? WHERE id = ?`, posB, a); err != nil {
		return fmt.Errorf("%w: assign position b to a: %v", internalerr.ErrStorage, err)
	}

	return tx.Commit()
}

// DeleteDictionary removes a dictionary and cascades to its records, term
// links, and frequencies (enforced by ON DELETE CASCADE foreign keys), and
// to any profile referencing it (enabled-set rows cascade; sorting
// reference is set NULL), all within one transaction.
func (s *Store) DeleteDictionary(ctx context.Context, id store.DictionaryID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete: %v", internalerr.ErrStorage, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM dictionaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete dictionary: %v", internalerr.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internalerr.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit delete: %v", internalerr.ErrStorage, err)
	}

	s.metaCache.Remove(id)
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func (s *Store) loadProfile(ctx context.Context, q querier, id store.ProfileID) (store.Profile, error) {
	var p store.Profile
	var name, fontFamily, ankiDeck, ankiNoteType sql.NullString
	var sortingID sql.NullInt64

	err := q.QueryRowContext(ctx, `
SELECT id, name, sorting_dictionary_id, font_family, anki_deck, anki_note_type
FROM profiles WHERE id = ?`, id).Scan(&p.ID, &name, &sortingID, &fontFamily, &ankiDeck, &ankiNoteType)
	if err == sql.ErrNoRows {
		return store.Profile{}, internalerr.ErrNotFound
	}
	if err != nil {
		return store.Profile{}, fmt.Errorf("%w: load profile: %v", internalerr.ErrStorage, err)
	}
	p.Name = name.String
	p.FontFamily = fontFamily.String
	p.AnkiDeck = ankiDeck.String
	p.AnkiNoteType = ankiNoteType.String
	if sortingID.Valid {
		d := store.DictionaryID(sortingID.Int64)
		p.SortingDictionaryID = &d
	}

	rows, err := q.QueryContext(ctx, `SELECT dict_id FROM profile_enabled_dicts WHERE profile_id = ?`, id)
	if err != nil {
		return store.Profile{}, fmt.Errorf("%w: load enabled dicts: %v", internalerr.ErrStorage, err)
	}
	defer rows.Close()

	p.EnabledDictionaries = make(map[store.DictionaryID]struct{})
	for rows.Next() {
		var did store.DictionaryID
		if err := rows.Scan(&did); err != nil {
			return store.Profile{}, fmt.Errorf("%w: scan enabled dict: %v", internalerr.ErrStorage, err)
		}
		p.EnabledDictionaries[did] = struct{}{}
	}
	return p, rows.Err()
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting loadProfile run
// either standalone or inside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListProfiles returns every profile.
func (s *Store) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", internalerr.ErrStorage, err)
	}
	var ids []store.ProfileID
	for rows.Next() {
		var id store.ProfileID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan profile id: %v", internalerr.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]store.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := s.loadProfile(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProfile loads a single profile.
func (s *Store) GetProfile(ctx context.Context, id store.ProfileID) (store.Profile, error) {
	return s.loadProfile(ctx, s.db, id)
}

// CreateProfile inserts a new, initially empty profile.
func (s *Store) CreateProfile(ctx context.Context, name string) (store.ProfileID, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO profiles (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("%w: create profile: %v", internalerr.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: read profile id: %v", internalerr.ErrStorage, err)
	}
	return store.ProfileID(id), nil
}

// DeleteProfile removes a profile, refusing if it is the last one, and
// reassigns Config.CurrentProfileID to an arbitrary survivor if the
// deleted profile was current.
func (s *Store) DeleteProfile(ctx context.Context, id store.ProfileID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin delete profile: %v", internalerr.ErrStorage, err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return fmt.Errorf("%w: count profiles: %v", internalerr.ErrStorage, err)
	}
	if count <= 1 {
		return fmt.Errorf("%w: cannot delete the last profile", internalerr.ErrInvariant)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete profile: %v", internalerr.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internalerr.ErrNotFound
	}

	var currentID store.ProfileID
	if err := tx.QueryRowContext(ctx, `SELECT current_profile_id FROM config WHERE id = 1`).Scan(&currentID); err != nil {
		return fmt.Errorf("%w: read current profile: %v", internalerr.ErrStorage, err)
	}
	if currentID == id {
		var survivor store.ProfileID
		if err := tx.QueryRowContext(ctx, `SELECT id FROM profiles ORDER BY id LIMIT 1`).Scan(&survivor); err != nil {
			return fmt.Errorf("%w: pick survivor profile: %v", internalerr.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE config SET current_profile_id = ? WHERE id = 1`, survivor); err != nil {
			return fmt.Errorf("%w: reassign current profile: %v", internalerr.ErrStorage, err)
		}
	}

	return tx.Commit()
}

// SetSortingDictionary sets or clears (dict == nil) the profile's sorting
// dictionary.
func (s *Store) SetSortingDictionary(ctx context.Context, profile store.ProfileID, dict *store.DictionaryID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var v any
	if dict != nil {
		v = *dict
	}
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET sorting_dictionary_id = ? WHERE id = ?`, v, profile)
	if err != nil {
		return fmt.Errorf("%w: set sorting dictionary: %v", internalerr.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internalerr.ErrNotFound
	}
	return nil
}

// EnableDictionary adds dict to the profile's enabled set; enabling twice
// is a no-op (idempotent).
func (s *Store) EnableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO profile_enabled_dicts (profile_id, dict_id) VALUES (?, ?)
ON CONFLICT (profile_id, dict_id) DO NOTHING`, profile, dict)
	if err != nil {
		return fmt.Errorf("%w: enable dictionary: %v", internalerr.ErrStorage, err)
	}
	return nil
}

// DisableDictionary removes dict from the profile's enabled set; disabling
// twice is a no-op.
func (s *Store) DisableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
DELETE FROM profile_enabled_dicts WHERE profile_id = ? AND dict_id = ?`, profile, dict)
	if err != nil {
		return fmt.Errorf("%w: disable dictionary: %v", internalerr.ErrStorage, err)
	}
	return nil
}

func (s *Store) SetAnkiDeck(ctx context.Context, profile store.ProfileID, deck string) error {
	return s.setProfileStringField(ctx, "anki_deck", profile, deck)
}

func (s *Store) SetAnkiNoteType(ctx context.Context, profile store.ProfileID, noteType string) error {
	return s.setProfileStringField(ctx, "anki_note_type", profile, noteType)
}

func (s *Store) setProfileStringField(ctx context.Context, column string, profile store.ProfileID, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET `+column+` = ? WHERE id = ?`, value, profile)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", internalerr.ErrStorage, column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internalerr.ErrNotFound
	}
	return nil
}

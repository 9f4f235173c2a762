package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// GetConfig reads the singleton config row.
func (s *Store) GetConfig(ctx context.Context) (store.Config, error) {
	var c store.Config
	var texthooker, ankiconnect, apiKey sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT current_profile_id, texthooker_url, ankiconnect_url, api_key FROM config WHERE id = 1`).
		Scan(&c.CurrentProfileID, &texthooker, &ankiconnect, &apiKey)
	if err != nil {
		return store.Config{}, fmt.Errorf("%w: load config: %v", internalerr.ErrStorage, err)
	}
	c.TexthookerURL = texthooker.String
	c.AnkiConnectURL = ankiconnect.String
	c.APIKey = apiKey.String
	return c, nil
}

// SetCurrentProfile changes which profile is current; the profile must
// already exist (enforced by the config table's foreign key).
func (s *Store) SetCurrentProfile(ctx context.Context, id store.ProfileID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: check profile exists: %v", internalerr.ErrStorage, err)
	}
	if exists == 0 {
		return internalerr.ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE config SET current_profile_id = ? WHERE id = 1`, id); err != nil {
		return fmt.Errorf("%w: set current profile: %v", internalerr.ErrStorage, err)
	}
	return nil
}

func (s *Store) SetTexthookerURL(ctx context.Context, url string) error {
	return s.setConfigStringField(ctx, "texthooker_url", url)
}

func (s *Store) SetAnkiConnectURL(ctx context.Context, url string) error {
	return s.setConfigStringField(ctx, "ankiconnect_url", url)
}

func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	return s.setConfigStringField(ctx, "api_key", key)
}

func (s *Store) setConfigStringField(ctx context.Context, column, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `UPDATE config SET `+column+` = ? WHERE id = 1`, value); err != nil {
		return fmt.Errorf("%w: set config %s: %v", internalerr.ErrStorage, column, err)
	}
	return nil
}

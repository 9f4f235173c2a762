package memstore

import (
	"context"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func (s *Store) GetConfig(ctx context.Context) (store.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

func (s *Store) SetCurrentProfile(ctx context.Context, id store.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return internalerr.ErrNotFound
	}
	s.config.CurrentProfileID = id
	return nil
}

func (s *Store) SetTexthookerURL(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.TexthookerURL = url
	return nil
}

func (s *Store) SetAnkiConnectURL(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.AnkiConnectURL = url
	return nil
}

func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.APIKey = key
	return nil
}

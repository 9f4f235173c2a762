package memstore

import (
	"context"
	"fmt"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func cloneProfile(p store.Profile) store.Profile {
	out := p
	out.EnabledDictionaries = make(map[store.DictionaryID]struct{}, len(p.EnabledDictionaries))
	for k := range p.EnabledDictionaries {
		out.EnabledDictionaries[k] = struct{}{}
	}
	return out
}

func (s *Store) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, cloneProfile(p))
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, id store.ProfileID) (store.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return store.Profile{}, internalerr.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) CreateProfile(ctx context.Context, name string) (store.ProfileID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProfID++
	id := s.nextProfID
	s.profiles[id] = store.Profile{ID: id, Name: name, EnabledDictionaries: map[store.DictionaryID]struct{}{}}
	return id, nil
}

func (s *Store) DeleteProfile(ctx context.Context, id store.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.profiles) <= 1 {
		return fmt.Errorf("%w: cannot delete the last profile", internalerr.ErrInvariant)
	}
	if _, ok := s.profiles[id]; !ok {
		return internalerr.ErrNotFound
	}
	delete(s.profiles, id)

	if s.config.CurrentProfileID == id {
		for pid := range s.profiles {
			s.config.CurrentProfileID = pid
			break
		}
	}
	return nil
}

func (s *Store) SetSortingDictionary(ctx context.Context, profile store.ProfileID, dict *store.DictionaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profile]
	if !ok {
		return internalerr.ErrNotFound
	}
	p.SortingDictionaryID = dict
	s.profiles[profile] = p
	return nil
}

func (s *Store) EnableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profile]
	if !ok {
		return internalerr.ErrNotFound
	}
	if p.EnabledDictionaries == nil {
		p.EnabledDictionaries = map[store.DictionaryID]struct{}{}
	}
	p.EnabledDictionaries[dict] = struct{}{}
	s.profiles[profile] = p
	return nil
}

func (s *Store) DisableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profile]
	if !ok {
		return internalerr.ErrNotFound
	}
	delete(p.EnabledDictionaries, dict)
	s.profiles[profile] = p
	return nil
}

func (s *Store) SetAnkiDeck(ctx context.Context, profile store.ProfileID, deck string) error {
	return s.setProfileField(profile, func(p *store.Profile) { p.AnkiDeck = deck })
}

func (s *Store) SetAnkiNoteType(ctx context.Context, profile store.ProfileID, noteType string) error {
	return s.setProfileField(profile, func(p *store.Profile) { p.AnkiNoteType = noteType })
}

func (s *Store) setProfileField(profile store.ProfileID, mutate func(*store.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profile]
	if !ok {
		return internalerr.ErrNotFound
	}
	mutate(&p)
	s.profiles[profile] = p
	return nil
}

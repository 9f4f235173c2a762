package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

const kindGlossary uint8 = 1

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexengine.db")
	s, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func importDict(t *testing.T, s *Store, name string, entries map[string]string) store.DictionaryID {
	t.Helper()
	ctx := context.Background()
	id, err := s.WithImport(ctx, func(tx store.ImportTx) error {
		dict, err := tx.CreateDictionary(ctx, store.DictionaryMeta{Name: name})
		if err != nil {
			return err
		}
		for headword, reading := range entries {
			rec, err := tx.InsertRecord(ctx, dict, kindGlossary, []byte(name+":"+headword))
			if err != nil {
				return err
			}
			if err := tx.LinkTerm(ctx, dict, rec, headword, reading); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("import %s: %v", name, err)
	}
	return id
}

func TestOpen_BootstrapsDefaultProfileAndConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profiles, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Default" {
		t.Fatalf("profiles = %+v, want one Default profile", profiles)
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.CurrentProfileID != profiles[0].ID {
		t.Errorf("CurrentProfileID = %v, want %v", cfg.CurrentProfileID, profiles[0].ID)
	}
}

func TestLookup_BasicExactMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := importDict(t, s, "D1", map[string]string{"錆": "さび"})
	if err := s.EnableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("enable: %v", err)
	}

	hits, err := s.QueryTerm(ctx, 1, "錆", []uint8{kindGlossary})
	if err != nil {
		t.Fatalf("QueryTerm: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	if hits[0].Headword != "錆" || hits[0].Reading != "さび" {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestLookup_EnabledSetFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := importDict(t, s, "D1", map[string]string{"錆": "さび"})
	d2 := importDict(t, s, "D2", map[string]string{"錆": "さび"})

	if err := s.EnableDictionary(ctx, 1, d2); err != nil {
		t.Fatalf("enable: %v", err)
	}

	hits, err := s.QueryTerm(ctx, 1, "錆", nil)
	if err != nil {
		t.Fatalf("QueryTerm: %v", err)
	}
	for _, h := range hits {
		if h.Source == d1 {
			t.Errorf("hit from disabled dictionary D1 leaked through: %+v", h)
		}
	}
}

func TestDeleteDictionary_Cascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := importDict(t, s, "D1", map[string]string{"錆": "さび"})
	if err := s.EnableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := s.SetSortingDictionary(ctx, 1, &d1); err != nil {
		t.Fatalf("set sorting: %v", err)
	}

	if err := s.DeleteDictionary(ctx, d1); err != nil {
		t.Fatalf("DeleteDictionary: %v", err)
	}

	hits, err := s.QueryTerm(ctx, 1, "錆", nil)
	if err != nil {
		t.Fatalf("QueryTerm: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected 0 hits after delete, got %d", len(hits))
	}

	p, err := s.GetProfile(ctx, 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if _, enabled := p.EnabledDictionaries[d1]; enabled {
		t.Error("deleted dictionary still in enabled set")
	}
	if p.SortingDictionaryID != nil {
		t.Error("deleted dictionary still set as sorting dictionary")
	}

	if _, err := s.DictionaryMeta(ctx, d1); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("DictionaryMeta after delete = %v, want ErrNotFound", err)
	}
}

func TestSwapPositions_PreservesUniqueness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := importDict(t, s, "D1", map[string]string{"a": "b"})
	d2 := importDict(t, s, "D2", map[string]string{"a": "b"})

	if err := s.SwapPositions(ctx, d1, d2); err != nil {
		t.Fatalf("SwapPositions: %v", err)
	}

	dicts, err := s.ListDictionaries(ctx)
	if err != nil {
		t.Fatalf("ListDictionaries: %v", err)
	}
	if len(dicts) != 2 {
		t.Fatalf("len(dicts) = %d, want 2", len(dicts))
	}
	if dicts[0].ID != d2 || dicts[1].ID != d1 {
		t.Fatalf("positions not swapped: %+v", dicts)
	}
	if dicts[0].Position == dicts[1].Position {
		t.Fatalf("positions collided after swap: %+v", dicts)
	}
}

func TestDeleteProfile_RefusesLastProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.DeleteProfile(ctx, 1); !errors.Is(err, internalerr.ErrInvariant) {
		t.Fatalf("DeleteProfile on last profile = %v, want ErrInvariant", err)
	}
}

func TestDeleteProfile_ReassignsCurrentProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p2, err := s.CreateProfile(ctx, "Second")
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	if err := s.DeleteProfile(ctx, 1); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	cfg, err := s.GetConfig(ctx)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.CurrentProfileID != p2 {
		t.Errorf("CurrentProfileID = %v, want %v", cfg.CurrentProfileID, p2)
	}
}

func TestEnableDisableDictionary_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	d1 := importDict(t, s, "D1", map[string]string{"x": "y"})

	if err := s.EnableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("enable 1: %v", err)
	}
	if err := s.EnableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("enable 2: %v", err)
	}
	p, _ := s.GetProfile(ctx, 1)
	if len(p.EnabledDictionaries) != 1 {
		t.Fatalf("expected 1 enabled dictionary, got %d", len(p.EnabledDictionaries))
	}

	if err := s.DisableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("disable 1: %v", err)
	}
	if err := s.DisableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("disable 2: %v", err)
	}
	p, _ = s.GetProfile(ctx, 1)
	if len(p.EnabledDictionaries) != 0 {
		t.Fatalf("expected 0 enabled dictionaries, got %d", len(p.EnabledDictionaries))
	}
}

func TestImport_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WithImport(ctx, func(tx store.ImportTx) error {
		if _, err := tx.CreateDictionary(ctx, store.DictionaryMeta{Name: "broken"}); err != nil {
			return err
		}
		return errors.New("boom: malformed archive header")
	})
	if err == nil {
		t.Fatal("expected error from failed import")
	}

	dicts, err := s.ListDictionaries(ctx)
	if err != nil {
		t.Fatalf("ListDictionaries: %v", err)
	}
	if len(dicts) != 0 {
		t.Fatalf("expected 0 dictionaries after rollback, got %d", len(dicts))
	}
}

func TestLookup_RankingBySortingDictionary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := importDict(t, s, "D1", map[string]string{"日本": "にほん"})
	d2 := importDict(t, s, "D2", map[string]string{"日本": "にほん"})

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO frequencies (source, headword, reading, mode, value) VALUES (?, ?, ?, ?, ?)`,
		d1, "日本", "にほん", store.FrequencyRank, 50); err != nil {
		t.Fatalf("insert frequency d1: %v", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO frequencies (source, headword, reading, mode, value) VALUES (?, ?, ?, ?, ?)`,
		d2, "日本", "にほん", store.FrequencyRank, 10); err != nil {
		t.Fatalf("insert frequency d2: %v", err)
	}

	if err := s.EnableDictionary(ctx, 1, d1); err != nil {
		t.Fatalf("enable d1: %v", err)
	}
	if err := s.EnableDictionary(ctx, 1, d2); err != nil {
		t.Fatalf("enable d2: %v", err)
	}
	if err := s.SetSortingDictionary(ctx, 1, &d1); err != nil {
		t.Fatalf("set sorting: %v", err)
	}

	hits, err := s.QueryTerm(ctx, 1, "日本", nil)
	if err != nil {
		t.Fatalf("QueryTerm: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].Source != d1 {
		t.Errorf("hits[0].Source = %v, want d1 (sorting dictionary's rank used)", hits[0].Source)
	}
	if hits[1].Source != d2 {
		t.Errorf("hits[1].Source = %v, want d2", hits[1].Source)
	}
}

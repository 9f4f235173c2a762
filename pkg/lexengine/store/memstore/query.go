package memstore

import (
	"context"
	"sort"

	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// QueryTerm mirrors the sqlite backend's ranking algorithm over the
// in-memory maps, so unit tests can exercise lookup ordering without a
// database.
func (s *Store) QueryTerm(ctx context.Context, profile store.ProfileID, text string, wantedKinds []uint8) ([]store.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profile]
	if !ok {
		return nil, nil
	}
	if len(p.EnabledDictionaries) == 0 {
		return nil, nil
	}

	wanted := make(map[uint8]struct{}, len(wantedKinds))
	for _, k := range wantedKinds {
		wanted[k] = struct{}{}
	}

	type matched struct {
		hit      store.Hit
		position int
	}
	var rows []matched

	for _, l := range s.links {
		if _, enabled := p.EnabledDictionaries[l.source]; !enabled {
			continue
		}
		if l.headword != text && l.reading != text {
			continue
		}
		rec, ok := s.recs[l.record]
		if !ok {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[rec.kind]; !ok {
				continue
			}
		}

		hit := store.Hit{
			RecordID: rec.id,
			Source:   l.source,
			Kind:     rec.kind,
			Data:     rec.data,
			Headword: l.headword,
			Reading:  l.reading,
		}

		if p.SortingDictionaryID != nil {
			if f, ok := s.freqs[freqKey{source: *p.SortingDictionaryID, headword: l.headword, reading: l.reading}]; ok {
				fc := f
				hit.ProfileFrequency = &fc
			}
		}
		if f, ok := s.freqs[freqKey{source: l.source, headword: l.headword, reading: l.reading}]; ok {
			fc := f
			hit.SourceFrequency = &fc
		}

		dict := s.dicts[l.source]
		rows = append(rows, matched{hit: hit, position: dict.Position})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]

		abucket := exactBucket(a.hit, text)
		bbucket := exactBucket(b.hit, text)
		if abucket != bbucket {
			return abucket < bbucket
		}
		if a.position != b.position {
			return a.position < b.position
		}

		apb, bpb := 1, 1
		var apv, bpv int64
		if a.hit.ProfileFrequency != nil {
			apb, apv = 0, freqSortValue(*a.hit.ProfileFrequency)
		}
		if b.hit.ProfileFrequency != nil {
			bpb, bpv = 0, freqSortValue(*b.hit.ProfileFrequency)
		}
		if apb != bpb {
			return apb < bpb
		}
		if apv != bpv {
			return apv < bpv
		}

		var asv, bsv int64
		if a.hit.SourceFrequency != nil {
			asv = freqSortValue(*a.hit.SourceFrequency)
		}
		if b.hit.SourceFrequency != nil {
			bsv = freqSortValue(*b.hit.SourceFrequency)
		}
		return asv < bsv
	})

	out := make([]store.Hit, len(rows))
	for i, r := range rows {
		out[i] = r.hit
	}
	return out, nil
}

func exactBucket(h store.Hit, text string) int {
	hw := h.Headword == text
	rd := h.Reading == text
	switch {
	case hw && rd:
		return 0
	case hw || rd:
		return 1
	default:
		return 2
	}
}

func freqSortValue(f store.Frequency) int64 {
	switch f.Mode {
	case store.FrequencyRank:
		return f.Value
	case store.FrequencyOccurrence:
		return -f.Value
	default:
		return 0
	}
}

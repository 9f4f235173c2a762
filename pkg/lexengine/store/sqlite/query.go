package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// QueryTerm finds every term link matching text among the profile's
// enabled dictionaries, joins each against at most one profile-level and
// one source-level frequency, and sorts by a five-key lexicographic
// order (see sortHits).
func (s *Store) QueryTerm(ctx context.Context, profile store.ProfileID, text string, wantedKinds []uint8) ([]store.Hit, error) {
	p, err := s.loadProfile(ctx, s.db, profile)
	if err != nil {
		return nil, err
	}
	if len(p.EnabledDictionaries) == 0 {
		return nil, nil
	}

	enabledIDs := make([]any, 0, len(p.EnabledDictionaries))
	for id := range p.EnabledDictionaries {
		enabledIDs = append(enabledIDs, id)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(enabledIDs)), ",")
	query := fmt.Sprintf(`
SELECT tl.source, tl.record, tl.headword, tl.reading, r.kind, r.data, d.position
FROM term_links tl
JOIN records r ON r.id = tl.record
JOIN dictionaries d ON d.id = tl.source
WHERE (tl.headword = ? OR tl.reading = ?)
  AND tl.source IN (%s)`, placeholders)

	args := make([]any, 0, len(enabledIDs)+2)
	args = append(args, text, text)
	args = append(args, enabledIDs...)

	if len(wantedKinds) > 0 {
		kindPlaceholders := strings.TrimSuffix(strings.Repeat("?,", len(wantedKinds)), ",")
		query += fmt.Sprintf(" AND r.kind IN (%s)", kindPlaceholders)
		for _, k := range wantedKinds {
			args = append(args, k)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query term: %v", internalerr.ErrStorage, err)
	}
	defer rows.Close()

	type row struct {
		hit      store.Hit
		position int
		headword sql.NullString
		reading  sql.NullString
	}

	var matched []row
	for rows.Next() {
		var r row
		var headword, reading sql.NullString
		if err := rows.Scan(&r.hit.Source, &r.hit.RecordID, &headword, &reading, &r.hit.Kind, &r.hit.Data, &r.position); err != nil {
			return nil, fmt.Errorf("%w: scan term hit: %v", internalerr.ErrStorage, err)
		}
		if headword.Valid {
			r.hit.Headword = headword.String
		}
		if reading.Valid {
			r.hit.Reading = reading.String
		}
		matched = append(matched, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate term hits: %v", internalerr.ErrStorage, err)
	}

	hits := make([]store.Hit, 0, len(matched))
	positions := make([]int, 0, len(matched))
	for _, r := range matched {
		hit := r.hit

		if p.SortingDictionaryID != nil {
			freq, err := s.lookupFrequency(ctx, *p.SortingDictionaryID, hit.Headword, hit.Reading)
			if err != nil {
				return nil, err
			}
			hit.ProfileFrequency = freq
		}

		srcFreq, err := s.lookupFrequency(ctx, hit.Source, hit.Headword, hit.Reading)
		if err != nil {
			return nil, err
		}
		hit.SourceFrequency = srcFreq

		hits = append(hits, hit)
		positions = append(positions, r.position)
	}

	sortHits(hits, positions, text)

	return hits, nil
}

// lookupFrequency fetches the (headword, reading)-keyed frequency for a
// specific dictionary, treating "" as SQL NULL to match import semantics.
func (s *Store) lookupFrequency(ctx context.Context, source store.DictionaryID, headword, reading string) (*store.Frequency, error) {
	var h, r any
	if headword != "" {
		h = headword
	}
	if reading != "" {
		r = reading
	}

	var mode store.FrequencyMode
	var value int64
	err := s.db.QueryRowContext(ctx, `
SELECT mode, value FROM frequencies
WHERE source = ? AND headword IS ? AND reading IS ?`, source, h, r).Scan(&mode, &value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup frequency: %v", internalerr.ErrStorage, err)
	}
	return &store.Frequency{Source: source, Headword: headword, Reading: reading, Mode: mode, Value: value}, nil
}

// sortHits applies the five sort keys, in place: exact-match before
// partial, dictionary position, whether a profile frequency exists,
// profile frequency value, then source frequency value; hits equal on all
// five keep the order they were read in. positions holds each hit's
// dictionary position, parallel to hits.
func sortHits(hits []store.Hit, positions []int, text string) {
	type key struct {
		exactBucket   int
		position      int
		profileBucket int
		profileValue  int64
		sourceValue   int64
	}

	keys := make([]key, len(hits))
	for i, h := range hits {
		k := key{position: positions[i]}

		hw := h.Headword == text
		rd := h.Reading == text
		switch {
		case hw && rd:
			k.exactBucket = 0
		case hw || rd:
			k.exactBucket = 1
		default:
			k.exactBucket = 2
		}

		if h.ProfileFrequency == nil {
			k.profileBucket = 1
		} else {
			k.profileBucket = 0
			k.profileValue = freqSortValue(*h.ProfileFrequency)
		}

		if h.SourceFrequency != nil {
			k.sourceValue = freqSortValue(*h.SourceFrequency)
		}

		keys[i] = k
	}

	idx := make([]int, len(hits))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.exactBucket != kb.exactBucket {
			return ka.exactBucket < kb.exactBucket
		}
		if ka.position != kb.position {
			return ka.position < kb.position
		}
		if ka.profileBucket != kb.profileBucket {
			return ka.profileBucket < kb.profileBucket
		}
		if ka.profileValue != kb.profileValue {
			return ka.profileValue < kb.profileValue
		}
		return ka.sourceValue < kb.sourceValue
	})

	sorted := make([]store.Hit, len(hits))
	for i, j := range idx {
		sorted[i] = hits[j]
	}
	copy(hits, sorted)
}

// freqSortValue transforms a frequency into its sort contribution: rank
// sorts ascending on +value (lower rank = more frequent = sorts first),
// occurrence sorts ascending on -value (higher occurrence = more frequent
// = sorts first).
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

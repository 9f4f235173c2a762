// Package present folds a flat lookup result into per-term aggregates
// suitable for templated rendering: flat scored rows folded into
// display-ready term groups.
package present

import (
	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/lookup"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// Term identifies a term group by its (headword, reading) pair. A Hit
// with an empty reading belongs to a different group than one with the
// same headword and a non-empty reading.
type Term struct {
	Headword string
	Reading  string
}

// FuriganaPart pairs a headword substring with its reading, or leaves
// Ruby empty for kana/non-kanji spans.
type FuriganaPart struct {
	Base string
	Ruby string
}

// FrequencyDisplay is one dictionary's frequency observation, ready for
// rendering.
type FrequencyDisplay struct {
	Mode    codec.FrequencyMode
	Value   int64
	Display string
}

// PitchDisplay pairs a pitch accent with the audio clips assigned to it
// (see pairWithPitch).
type PitchDisplay struct {
	Accent codec.PitchAccent
	Audio  []codec.AudioClip
}

// Group is one presentation unit: all Hits sharing a (headword, reading)
// term, organized for rendering.
type Group struct {
	Term           Term
	ScanLength     int
	Furigana       []FuriganaPart
	Pitches        []PitchDisplay
	AudioNoPitch   map[store.DictionaryID][]codec.AudioClip
	Frequencies    map[store.DictionaryID][]FrequencyDisplay
	GlossaryGroups map[store.DictionaryID][]codec.GlossaryData
}

// Segmenter maps a headword to furigana parts given its reading. The
// default implementation is FuriganaTable; callers may substitute
// another segmenter for languages without a kanji/kana distinction.
type Segmenter interface {
	Segment(headword, reading string) []FuriganaPart
}

// Builder folds lookup.Hit results into Groups.
type Builder struct {
	Segmenter Segmenter
}

// NewBuilder builds a Builder using the bundled kanji↔reading table.
func NewBuilder() *Builder {
	return &Builder{Segmenter: DefaultFuriganaTable}
}

// Build groups hits by (headword, reading) in first-seen order,
// furigana-segments each term, and folds glossary, frequency, and
// pitch/audio records into the group's per-source maps.
func (b *Builder) Build(hits []lookup.Hit) []Group {
	order := make([]Term, 0)
	groups := make(map[Term]*Group)

	for _, h := range hits {
		term := Term{Headword: h.Headword, Reading: h.Reading}
		g, ok := groups[term]
		if !ok {
			g = &Group{
				Term:           term,
				ScanLength:     h.ScanLength,
				AudioNoPitch:   make(map[store.DictionaryID][]codec.AudioClip),
				Frequencies:    make(map[store.DictionaryID][]FrequencyDisplay),
				GlossaryGroups: make(map[store.DictionaryID][]codec.GlossaryData),
			}
			if term.Headword != "" && term.Reading != "" {
				g.Furigana = b.Segmenter.Segment(term.Headword, term.Reading)
			}
			groups[term] = g
			order = append(order, term)
		}

		applyFrequencies(g, h)

		switch h.Record.Kind {
		case codec.KindGlossary:
			if h.Record.Glossary != nil {
				g.GlossaryGroups[h.Source] = append(g.GlossaryGroups[h.Source], *h.Record.Glossary)
			}
		case codec.KindJpPitch:
			if h.Record.JpPitch != nil {
				addPitch(g, *h.Record.JpPitch)
			}
		case codec.KindAudio:
			if h.Record.Audio != nil {
				addAudio(g, h.Source, h.Record.Audio.Clip)
			}
		}
	}

	out := make([]Group, 0, len(order))
	for _, t := range order {
		out = append(out, *groups[t])
	}
	return out
}

func applyFrequencies(g *Group, h lookup.Hit) {
	if h.SourceFrequency != nil {
		g.Frequencies[h.Source] = append(g.Frequencies[h.Source], FrequencyDisplay{
			Mode:  codec.FrequencyMode(h.SourceFrequency.Mode),
			Value: h.SourceFrequency.Value,
		})
	}
}

// addPitch records one pitch record's accents, seeded with whatever
// audio the pitch record itself carries; audio arriving later via a
// separate Audio record is paired in by addAudio.
func addPitch(g *Group, data codec.JpPitchData) {
	for _, accent := range data.Accents {
		g.Pitches = append(g.Pitches, PitchDisplay{Accent: accent, Audio: append([]codec.AudioClip(nil), data.Audio...)})
	}
}

func addAudio(g *Group, source store.DictionaryID, clip codec.AudioClip) {
	if pairWithPitch(g, clip) {
		return
	}
	g.AudioNoPitch[source] = append(g.AudioNoPitch[source], clip)
}

// pairWithPitch walks the pitch entries in order and gives clip to the
// first entry that either has no audio yet or already holds a clip from
// the same provider. A clip therefore fills an empty entry whatever its
// provider; it is left unpaired (false) only when every entry already
// holds audio and none of that audio comes from the clip's provider.
func pairWithPitch(g *Group, clip codec.AudioClip) bool {
	for i := range g.Pitches {
		if len(g.Pitches[i].Audio) == 0 {
			g.Pitches[i].Audio = append(g.Pitches[i].Audio, clip)
			return true
		}
		if pitchHasProvider(g.Pitches[i], clip.Provider) {
			g.Pitches[i].Audio = append(g.Pitches[i].Audio, clip)
			return true
		}
	}
	return false
}

func pitchHasProvider(p PitchDisplay, provider string) bool {
	for _, a := range p.Audio {
		if a.Provider == provider {
			return true
		}
	}
	return false
}

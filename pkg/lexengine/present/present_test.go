package present

import (
	"reflect"
	"testing"

	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/lookup"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func TestBuilder_GroupsByHeadwordAndReading(t *testing.T) {
	b := NewBuilder()

	hits := []lookup.Hit{
		{
			Hit:        store.Hit{RecordID: 1, Source: 10, Headword: "錆", Reading: "さび"},
			ScanLength: 1,
			Record:     codec.Record{Kind: codec.KindGlossary, Glossary: &codec.GlossaryData{Content: []codec.ContentNode{{Kind: codec.NodeText, Text: "rust"}}}},
		},
		{
			Hit:        store.Hit{RecordID: 2, Source: 20, Headword: "錆", Reading: "さび"},
			ScanLength: 1,
			Record:     codec.Record{Kind: codec.KindGlossary, Glossary: &codec.GlossaryData{Content: []codec.ContentNode{{Kind: codec.NodeText, Text: "corrosion"}}}},
		},
		{
			Hit:        store.Hit{RecordID: 3, Source: 10, Headword: "錆", Reading: ""},
			ScanLength: 1,
			Record:     codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "p1", Data: []byte("wav")}}},
		},
	}

	groups := b.Build(hits)
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2 (different reading => different group)", len(groups))
	}

	var withReading, withoutReading *Group
	for i := range groups {
		if groups[i].Term.Reading == "さび" {
			withReading = &groups[i]
		} else {
			withoutReading = &groups[i]
		}
	}
	if withReading == nil || withoutReading == nil {
		t.Fatalf("expected one group with reading and one without: %+v", groups)
	}

	if len(withReading.GlossaryGroups[10]) != 1 || len(withReading.GlossaryGroups[20]) != 1 {
		t.Errorf("GlossaryGroups = %+v, want one entry per source", withReading.GlossaryGroups)
	}
	if len(withoutReading.AudioNoPitch[10]) != 1 {
		t.Errorf("AudioNoPitch = %+v, want one clip under source 10", withoutReading.AudioNoPitch)
	}
}

func TestBuilder_FuriganaBundledTable(t *testing.T) {
	b := NewBuilder()
	hits := []lookup.Hit{
		{Hit: store.Hit{RecordID: 1, Source: 1, Headword: "錆", Reading: "さび"}, Record: codec.Record{Kind: codec.KindGlossary}},
	}
	groups := b.Build(hits)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	want := []FuriganaPart{{Base: "錆", Ruby: "さび"}}
	if !reflect.DeepEqual(groups[0].Furigana, want) {
		t.Errorf("Furigana = %+v, want %+v", groups[0].Furigana, want)
	}
}

func TestBuilder_FuriganaFallbackForUnknownKanji(t *testing.T) {
	tbl := DefaultFuriganaTable
	parts := tbl.Segment("謎語", "なぞご")
	if len(parts) != 1 || parts[0].Base != "謎語" || parts[0].Ruby != "なぞご" {
		t.Errorf("Segment = %+v, want single fallback pair for unknown kanji 謎", parts)
	}
}

func TestBuilder_PitchAudioPairingByProviderTag(t *testing.T) {
	b := NewBuilder()
	hits := []lookup.Hit{
		{
			Hit:    store.Hit{RecordID: 1, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindJpPitch, JpPitch: &codec.JpPitchData{Accents: []codec.PitchAccent{{Position: 2, Category: codec.PitchNakadaka}}}},
		},
		{
			Hit:    store.Hit{RecordID: 2, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "nhk", Data: []byte("clip")}}},
		},
	}
	groups := b.Build(hits)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	g := groups[0]
	if len(g.Pitches) != 1 || len(g.Pitches[0].Audio) != 1 {
		t.Fatalf("expected audio paired onto the single pitch entry, got %+v", g.Pitches)
	}
	if len(g.AudioNoPitch) != 0 {
		t.Errorf("expected no unpaired audio, got %+v", g.AudioNoPitch)
	}
}

// Two pitch entries plus a provider tag that repeats: the first two clips
// (nhk, forvo) each fill an empty entry, a later nhk clip then joins the
// entry already holding nhk audio (the empty-entry rule alone can't
// explain that), and a clip whose provider matches nothing, with no entry
// left empty, falls through to AudioNoPitch.
func TestBuilder_PitchAudioPairingMultiEntryProviderMismatch(t *testing.T) {
	b := NewBuilder()
	hits := []lookup.Hit{
		{
			Hit: store.Hit{RecordID: 1, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindJpPitch, JpPitch: &codec.JpPitchData{Accents: []codec.PitchAccent{
				{Position: 2, Category: codec.PitchNakadaka},
				{Position: 0, Category: codec.PitchHeiban},
			}}},
		},
		{
			Hit:    store.Hit{RecordID: 2, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "nhk", Data: []byte("a")}}},
		},
		{
			Hit:    store.Hit{RecordID: 3, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "forvo", Data: []byte("b")}}},
		},
		{
			Hit:    store.Hit{RecordID: 4, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "nhk", Data: []byte("c")}}},
		},
		{
			Hit:    store.Hit{RecordID: 5, Source: 1, Headword: "食べる", Reading: "たべる"},
			Record: codec.Record{Kind: codec.KindAudio, Audio: &codec.AudioData{Clip: codec.AudioClip{Provider: "unknown-source", Data: []byte("d")}}},
		},
	}

	groups := b.Build(hits)
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	g := groups[0]
	if len(g.Pitches) != 2 {
		t.Fatalf("len(Pitches) = %d, want 2", len(g.Pitches))
	}
	if len(g.Pitches[0].Audio) != 2 || g.Pitches[0].Audio[0].Provider != "nhk" || g.Pitches[0].Audio[1].Provider != "nhk" {
		t.Errorf("Pitches[0].Audio = %+v, want two nhk clips", g.Pitches[0].Audio)
	}
	if len(g.Pitches[1].Audio) != 1 || g.Pitches[1].Audio[0].Provider != "forvo" {
		t.Errorf("Pitches[1].Audio = %+v, want one forvo clip", g.Pitches[1].Audio)
	}
	if len(g.AudioNoPitch[1]) != 1 || g.AudioNoPitch[1][0].Provider != "unknown-source" {
		t.Errorf("AudioNoPitch[1] = %+v, want the unknown-source clip", g.AudioNoPitch[1])
	}
}

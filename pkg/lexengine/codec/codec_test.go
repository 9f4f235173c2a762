package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
)

func TestRoundTrip_Glossary(t *testing.T) {
	d := GlossaryData{
		Content: []ContentNode{
			{Kind: NodeText, Text: "to rust"},
			{Kind: NodeRuby,
				Base: []ContentNode{{Kind: NodeText, Text: "錆"}},
				Ruby: []ContentNode{{Kind: NodeText, Text: "さび"}},
			},
		},
		Tags: []Tag{{Name: "n", Description: "noun"}},
	}

	raw, err := EncodeGlossary(d)
	if err != nil {
		t.Fatalf("EncodeGlossary: %v", err)
	}

	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Kind != KindGlossary {
		t.Fatalf("Kind = %v, want KindGlossary", rec.Kind)
	}
	if !reflect.DeepEqual(*rec.Glossary, d) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *rec.Glossary, d)
	}
}

func TestRoundTrip_Frequency(t *testing.T) {
	d := FrequencyData{Mode: FrequencyRank, Value: 50, Display: "50"}
	raw, err := EncodeFrequency(d)
	if err != nil {
		t.Fatalf("EncodeFrequency: %v", err)
	}
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(*rec.Frequency, d) {
		t.Fatalf("round trip mismatch: got %+v want %+v", *rec.Frequency, d)
	}
}

func TestRoundTrip_JpPitch(t *testing.T) {
	d := JpPitchData{
		Accents: []PitchAccent{{Position: 1, Category: PitchAtamadaka, Moras: []bool{true, false}}},
		Audio:   []AudioClip{{Provider: "jpod", MimeType: "audio/mpeg", Data: []byte{1, 2, 3}}},
	}
	raw, err := EncodeJpPitch(d)
	if err != nil {
		t.Fatalf("EncodeJpPitch: %v", err)
	}
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(*rec.JpPitch, d) {
		t.Fatalf("round trip mismatch: got %+v want %+v", *rec.JpPitch, d)
	}
}

func TestRoundTrip_Audio(t *testing.T) {
	d := AudioData{Clip: AudioClip{Provider: "forvo", Data: []byte("riff")}}
	raw, err := EncodeAudio(d)
	if err != nil {
		t.Fatalf("EncodeAudio: %v", err)
	}
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(*rec.Audio, d) {
		t.Fatalf("round trip mismatch: got %+v want %+v", *rec.Audio, d)
	}
}

func TestDecode_UnknownKindSkipsNotAborts(t *testing.T) {
	// Hand-build an envelope with a kind tag this build doesn't know,
	// simulating a record written by a future schema version.
	type rawEnvelope struct {
		Version uint8      `msgpack:"v"`
		Kind    RecordKind `msgpack:"k"`
		Payload []byte     `msgpack:"p"`
	}
	raw, err := msgpack.Marshal(rawEnvelope{Version: 1, Kind: RecordKind(99), Payload: []byte{}})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	_, err = Decode(raw)
	if !errors.Is(err, internalerr.ErrDecodeSkipped) {
		t.Fatalf("Decode error = %v, want ErrDecodeSkipped", err)
	}

	kind, err := DecodeKind(raw)
	if err != nil {
		t.Fatalf("DecodeKind: %v", err)
	}
	if kind != RecordKind(99) {
		t.Fatalf("DecodeKind = %v, want 99", kind)
	}
}

func TestOpaqueNodeRoundTrips(t *testing.T) {
	// A node variant this build doesn't model natively should still
	// round-trip losslessly via the Opaque escape hatch.
	inner, err := msgpack.Marshal(map[string]any{"future": "field"})
	if err != nil {
		t.Fatalf("marshal inner: %v", err)
	}
	d := GlossaryData{
		Content: []ContentNode{
			{Kind: NodeOpaque, OpaqueTag: "video", OpaqueBytes: inner},
		},
	}
	raw, err := EncodeGlossary(d)
	if err != nil {
		t.Fatalf("EncodeGlossary: %v", err)
	}
	rec, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Glossary.Content[0].OpaqueTag != "video" {
		t.Fatalf("OpaqueTag not preserved: %+v", rec.Glossary.Content[0])
	}
	if !reflect.DeepEqual(rec.Glossary.Content[0].OpaqueBytes, inner) {
		t.Fatalf("OpaqueBytes not preserved")
	}
}

func TestRecordKindString(t *testing.T) {
	cases := map[RecordKind]string{
		KindGlossary:     "glossary",
		KindFrequency:    "frequency",
		KindJpPitch:      "jp_pitch",
		KindAudio:        "audio",
		RecordKind(200):  "unknown",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("RecordKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

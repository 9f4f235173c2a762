package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
)

// envelopeVersion is bumped only if the envelope shape itself changes, not
// when a new RecordKind is added: kind tags stay stable across versions,
// so adding a kind is a backward-compatible schema bump.
const envelopeVersion uint8 = 1

// envelope is the self-describing wrapper every Record.Data carries: a
// version, a kind tag, and the kind-specific msgpack payload. Readers that
// don't recognize Kind can still decode the envelope and skip the payload.
type envelope struct {
	Version uint8      `msgpack:"v"`
	Kind    RecordKind `msgpack:"k"`
	Payload []byte     `msgpack:"p"`
}

// Record is the decoded, typed form of a store Record's opaque bytes.
// Exactly one of the payload fields is non-nil, matching Kind.
type Record struct {
	Kind      RecordKind
	Glossary  *GlossaryData
	Frequency *FrequencyData
	JpPitch   *JpPitchData
	Audio     *AudioData
}

// EncodeGlossary encodes a glossary payload into on-disk bytes.
func EncodeGlossary(d GlossaryData) ([]byte, error) {
	return encode(KindGlossary, d)
}

// EncodeFrequency encodes a frequency payload into on-disk bytes.
func EncodeFrequency(d FrequencyData) ([]byte, error) {
	return encode(KindFrequency, d)
}

// EncodeJpPitch encodes a Japanese pitch payload into on-disk bytes.
func EncodeJpPitch(d JpPitchData) ([]byte, error) {
	return encode(KindJpPitch, d)
}

// EncodeAudio encodes an audio-only payload into on-disk bytes.
func EncodeAudio(d AudioData) ([]byte, error) {
	return encode(KindAudio, d)
}

func encode(kind RecordKind, payload any) ([]byte, error) {
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal %s payload: %w", kind, err)
	}
	env := envelope{Version: envelopeVersion, Kind: kind, Payload: body}
	out, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return out, nil
}

// Decode reads a Record's raw bytes back into its typed form. A record
// whose kind tag this build doesn't recognize returns
// internalerr.ErrDecodeSkipped wrapped with the raw tag value; callers
// (lookup.Engine) are expected to skip such records rather than abort.
func Decode(raw []byte) (Record, error) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return Record{}, fmt.Errorf("codec: unmarshal envelope: %w", err)
	}

	if !env.Kind.Known() {
		return Record{}, fmt.Errorf("%w: tag %d", internalerr.ErrDecodeSkipped, env.Kind)
	}

	switch env.Kind {
	case KindGlossary:
		var d GlossaryData
		if err := msgpack.Unmarshal(env.Payload, &d); err != nil {
			return Record{}, fmt.Errorf("codec: unmarshal glossary: %w", err)
		}
		return Record{Kind: KindGlossary, Glossary: &d}, nil
	case KindFrequency:
		var d FrequencyData
		if err := msgpack.Unmarshal(env.Payload, &d); err != nil {
			return Record{}, fmt.Errorf("codec: unmarshal frequency: %w", err)
		}
		return Record{Kind: KindFrequency, Frequency: &d}, nil
	case KindJpPitch:
		var d JpPitchData
		if err := msgpack.Unmarshal(env.Payload, &d); err != nil {
			return Record{}, fmt.Errorf("codec: unmarshal jp pitch: %w", err)
		}
		return Record{Kind: KindJpPitch, JpPitch: &d}, nil
	case KindAudio:
		var d AudioData
		if err := msgpack.Unmarshal(env.Payload, &d); err != nil {
			return Record{}, fmt.Errorf("codec: unmarshal audio: %w", err)
		}
		return Record{Kind: KindAudio, Audio: &d}, nil
	default:
		// Known() above already excludes this, kept for exhaustiveness.
		return Record{}, fmt.Errorf("%w: tag %d", internalerr.ErrDecodeSkipped, env.Kind)
	}
}

// DecodeKind peeks at a record's kind tag without decoding its payload,
// letting Store.query_records filter by wanted kinds cheaply.
func DecodeKind(raw []byte) (RecordKind, error) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("codec: unmarshal envelope: %w", err)
	}
	return env.Kind, nil
}

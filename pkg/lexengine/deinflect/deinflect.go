// Package deinflect segments a sentence at a cursor position into ordered
// candidate lookups: surface forms and their canonical (headword, reading)
// pairs, longest scan first. Candidate production is a small struct
// wrapping a pure function behind a swappable strategy, generalized to
// Unicode-scalar scan lengths and morphological lemmatization.
package deinflect

// Candidate is one proposed lookup produced by an Analyzer. ScanLength is
// the number of Unicode scalar values (graphemes) consumed from the
// source sentence, never bytes.
type Candidate struct {
	ScanLength int
	Surface    string
	Headword   string
	Reading    string
}

// Analyzer produces candidates for a sentence at a cursor (rune index).
// Implementations must never panic; ill-formed input degrades to
// surface-only candidates.
type Analyzer interface {
	Candidates(sentence string, cursor int) []Candidate
}

// Language selects which Analyzer New builds. Additional languages are
// added by extending this enum and the switch in New; unsupported values
// fall back to Surface, which never fails.
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageSurface  Language = "surface"
)

// New builds the Analyzer configured for lang. maxRequestLen bounds how
// many graphemes ahead of the cursor are considered (spec default: 16).
func New(lang Language, maxRequestLen int) (Analyzer, error) {
	if maxRequestLen <= 0 {
		maxRequestLen = 16
	}
	switch lang {
	case LanguageJapanese:
		return newJapaneseAnalyzer(maxRequestLen)
	default:
		return &SurfaceAnalyzer{MaxRequestLen: maxRequestLen}, nil
	}
}

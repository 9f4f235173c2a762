package deinflect

import "github.com/rivo/uniseg"

// SurfaceAnalyzer emits a single candidate per prefix length: the bare
// surface text, uncanonicalized. It backs languages without a
// morphological analyzer wired in, and is also the panic-recovery
// fallback for JapaneseAnalyzer.
type SurfaceAnalyzer struct {
	MaxRequestLen int
}

func (a *SurfaceAnalyzer) Candidates(sentence string, cursor int) []Candidate {
	span := cursorSpan(sentence, cursor)
	if span == "" {
		return nil
	}

	max := a.MaxRequestLen
	if max <= 0 {
		max = 16
	}

	var out []Candidate
	bounds := graphemeBounds(span, max)
	for i := len(bounds) - 1; i >= 0; i-- {
		prefix := span[:bounds[i]]
		out = append(out, Candidate{
			ScanLength: i + 1,
			Surface:    prefix,
			Headword:   prefix,
		})
	}
	return out
}

// graphemeBounds returns, for each of the first max grapheme clusters in
// s, the byte offset just past that cluster.
func graphemeBounds(s string, max int) []int {
	bounds := make([]int, 0, max)
	gr := uniseg.NewGraphemes(s)
	pos := 0
	for gr.Next() && len(bounds) < max {
		_, to := gr.Positions()
		pos = to
		bounds = append(bounds, pos)
	}
	return bounds
}

// cursorSpan returns the substring of sentence starting at the rune
// index cursor. Out-of-range cursors yield an empty span rather than
// panicking.
func cursorSpan(sentence string, cursor int) string {
	if cursor < 0 {
		return ""
	}
	runes := []rune(sentence)
	if cursor >= len(runes) {
		return ""
	}
	return string(runes[cursor:])
}

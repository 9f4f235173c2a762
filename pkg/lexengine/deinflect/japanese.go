package deinflect

import (
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/rivo/uniseg"
)

// JapaneseAnalyzer produces deinflection candidates via kagome's IPA
// dictionary morphological analyzer, supplemented by a small table of
// continuation-form rules (rules.go) for conjugations kagome tokenizes
// as separate auxiliary tokens rather than folding into a base form.
type JapaneseAnalyzer struct {
	maxRequestLen int
	tok           *tokenizer.Tokenizer
	suffixes      *suffixTrie
	fallback      *SurfaceAnalyzer
}

func newJapaneseAnalyzer(maxRequestLen int) (*JapaneseAnalyzer, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("build kagome tokenizer: %w", err)
	}
	return &JapaneseAnalyzer{
		maxRequestLen: maxRequestLen,
		tok:           tok,
		suffixes:      newSuffixTrie(),
		fallback:      &SurfaceAnalyzer{MaxRequestLen: maxRequestLen},
	}, nil
}

type tokenSpan struct {
	token   tokenizer.Token
	scanLen int // cumulative graphemes consumed through this token
}

// Candidates never panics: a panic inside the analyzer (malformed
// dictionary state, unexpected tokenizer behavior) recovers to the
// surface-only fallback.
func (a *JapaneseAnalyzer) Candidates(sentence string, cursor int) (out []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			out = a.fallback.Candidates(sentence, cursor)
		}
	}()

	span := cursorSpan(sentence, cursor)
	if span == "" {
		return nil
	}

	bounds := graphemeBounds(span, a.maxRequestLen)
	if len(bounds) == 0 {
		return nil
	}
	truncated := span[:bounds[len(bounds)-1]]

	tokens := a.tok.Tokenize(truncated)

	spans := make([]tokenSpan, 0, len(tokens))
	byteEnd, graphemes := 0, 0
	for _, tk := range tokens {
		if tk.Surface == "" {
			continue
		}
		byteEnd += len(tk.Surface)
		graphemes += uniseg.GraphemeClusterCount(tk.Surface)
		spans = append(spans, tokenSpan{token: tk, scanLen: graphemes})
	}

	var lemmaCandidates []Candidate
	var prefixSurface, chainHeadword, chainReading string
	for i, sp := range spans {
		base, ok := sp.token.BaseForm()
		if !ok || base == "" {
			base = sp.token.Surface
		}
		reading, _ := sp.token.Reading()

		// A token whose base form differs from its own surface is itself
		// conjugated (e.g. an auxiliary verb's continuative form): it
		// extends the chain opened by the preceding token rather than
		// starting a new one, so the chain's headword/reading stay
		// pinned to whichever token opened it. A token already in its
		// own base form (nothing left for kagome to resolve) closes out
		// any chain and opens a fresh one.
		if i == 0 || base == sp.token.Surface || !ok {
			chainHeadword = base
			chainReading = reading
		}

		lemmaCandidates = append(lemmaCandidates, Candidate{
			ScanLength: sp.scanLen,
			Surface:    prefixSurface + sp.token.Surface,
			Headword:   chainHeadword,
			Reading:    chainReading,
		})

		prefixSurface += sp.token.Surface
	}
	// Token boundaries were walked shortest-first; emit longest-scan-first.
	reverseCandidates(lemmaCandidates)
	out = append(out, lemmaCandidates...)

	fullGraphemes := uniseg.GraphemeClusterCount(truncated)
	for _, r := range a.suffixes.matchSuffixes(truncated) {
		if canonical, ok := applyRule(truncated, r); ok {
			out = append(out, Candidate{
				ScanLength: fullGraphemes,
				Surface:    truncated,
				Headword:   canonical,
			})
		}
	}

	out = append(out, a.fallback.Candidates(sentence, cursor)...)

	return dedupCandidates(out)
}

func reverseCandidates(c []Candidate) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// dedupCandidates keeps the first occurrence of each (headword, reading)
// pair, preserving the longest scan length since candidates arrive
// longest-first.
func dedupCandidates(in []Candidate) []Candidate {
	type key struct{ headword, reading string }
	seen := make(map[key]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		k := key{c.Headword, c.Reading}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

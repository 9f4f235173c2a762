package deinflect

import (
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// rule describes one conjugated-suffix → dictionary-form-suffix
// transform, in the shape of Yomichan's own deinflect rule table:
// stripping `From` from a surface and appending `To` yields a candidate
// closer to (or at) the lemma. Several rules may chain; the trie lookup
// below only resolves a single hop per candidate, which matches what the
// morphological analyzer's lemma already covers for the rest.
type rule struct {
	from string
	to   string
}

// conjugationRules is a small, hand-curated subset of common Japanese
// verb/adjective continuation forms. It is not exhaustive; kagome's own
// lemmatization (BaseForm) handles the general case, and this table only
// adds candidates for continuation forms kagome tokenizes as separate
// auxiliary tokens rather than folding into the base form.
var conjugationRules = []rule{
	{from: "なかった", to: "ない"},
	{from: "ませんでした", to: "ます"},
	{from: "ません", to: "ます"},
	{from: "ました", to: "ます"},
	{from: "たかった", to: "たい"},
	{from: "ちゃった", to: "てしまう"},
	{from: "じゃった", to: "でしまう"},
	{from: "なくて", to: "ない"},
	{from: "くなかった", to: "い"},
	{from: "かった", to: "い"},
	{from: "すぎる", to: "る"},
	{from: "られる", to: "る"},
	{from: "させる", to: "る"},
	{from: "てしまう", to: "る"},
	{from: "でしまう", to: "ぐ"},
}

// suffixTrie indexes conjugationRules by reversed suffix so that, given a
// reversed surface, every stored rule whose suffix matches the end of
// the surface can be found in O(length) via VisitPrefixes, rather than
// scanning the rule table per candidate.
type suffixTrie struct {
	trie *patricia.Trie
}

func newSuffixTrie() *suffixTrie {
	t := patricia.NewTrie()
	for _, r := range conjugationRules {
		t.Insert(patricia.Prefix(reverseString(r.from)), r)
	}
	return &suffixTrie{trie: t}
}

// matchSuffixes returns every rule whose `from` suffix matches the end
// of surface, longest suffix first.
func (s *suffixTrie) matchSuffixes(surface string) []rule {
	var matches []rule
	reversed := reverseString(surface)
	s.trie.VisitPrefixes(patricia.Prefix(reversed), func(prefix patricia.Prefix, item patricia.Item) error {
		matches = append(matches, item.(rule))
		return nil
	})
	// VisitPrefixes visits shortest-to-longest; reverse so callers see
	// longest-suffix-first, matching the "longest scan first" contract.
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	return matches
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// applyRule strips rule.from from surface and appends rule.to, if
// surface actually ends with rule.from.
func applyRule(surface string, r rule) (string, bool) {
	if !strings.HasSuffix(surface, r.from) {
		return "", false
	}
	stem := strings.TrimSuffix(surface, r.from)
	return stem + r.to, true
}

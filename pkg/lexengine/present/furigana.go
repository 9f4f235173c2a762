package present

import "unicode"

// FuriganaTable segments a headword into kanji/kana runs and pairs each
// kanji run with the slice of the reading it accounts for, using a
// bundled per-kanji reading table. Runs the table can't resolve, or
// headwords whose kana (okurigana) don't align literally with the
// reading, fall back to a single (headword, reading) pair.
type FuriganaTable struct {
	readings map[rune][]string
}

// DefaultFuriganaTable is the bundled table used by NewBuilder.
var DefaultFuriganaTable = newBundledFuriganaTable()

func (f *FuriganaTable) Segment(headword, reading string) []FuriganaPart {
	segs := splitKanjiKana(headword)
	if len(segs) == 0 {
		return nil
	}
	if len(segs) == 1 && !segs[0].kanji {
		return []FuriganaPart{{Base: headword}}
	}

	readingRunes := []rune(reading)
	parts := make([]FuriganaPart, 0, len(segs))
	pos := 0

	for i, seg := range segs {
		if !seg.kanji {
			segRunes := []rune(seg.text)
			if pos+len(segRunes) > len(readingRunes) || string(readingRunes[pos:pos+len(segRunes)]) != seg.text {
				return fallbackFurigana(headword, reading)
			}
			parts = append(parts, FuriganaPart{Base: seg.text})
			pos += len(segRunes)
			continue
		}

		var ruby []rune
		for _, kr := range seg.text {
			cands, ok := f.readings[kr]
			if !ok {
				return fallbackFurigana(headword, reading)
			}
			matched := false
			for _, cand := range cands {
				cr := []rune(cand)
				if pos+len(cr) <= len(readingRunes) && string(readingRunes[pos:pos+len(cr)]) == cand {
					ruby = append(ruby, cr...)
					pos += len(cr)
					matched = true
					break
				}
			}
			if !matched {
				return fallbackFurigana(headword, reading)
			}
		}
		// The final kanji run absorbs any reading tail the table's
		// per-character candidates didn't exactly cover (compound
		// readings the table doesn't enumerate).
		if i == len(segs)-1 && pos < len(readingRunes) {
			ruby = append(ruby, readingRunes[pos:]...)
			pos = len(readingRunes)
		}
		parts = append(parts, FuriganaPart{Base: seg.text, Ruby: string(ruby)})
	}

	if pos != len(readingRunes) {
		return fallbackFurigana(headword, reading)
	}
	return parts
}

func fallbackFurigana(headword, reading string) []FuriganaPart {
	return []FuriganaPart{{Base: headword, Ruby: reading}}
}

type kanjiKanaRun struct {
	kanji bool
	text  string
}

func splitKanjiKana(s string) []kanjiKanaRun {
	var runs []kanjiKanaRun
	var current []rune
	var currentKanji bool
	first := true

	flush := func() {
		if len(current) > 0 {
			runs = append(runs, kanjiKanaRun{kanji: currentKanji, text: string(current)})
			current = nil
		}
	}

	for _, r := range s {
		isKanji := unicode.Is(unicode.Han, r)
		if first {
			currentKanji = isKanji
			first = false
		} else if isKanji != currentKanji {
			flush()
			currentKanji = isKanji
		}
		current = append(current, r)
	}
	flush()
	return runs
}

// newBundledFuriganaTable seeds a small table of common kanji and their
// on'yomi/kun'yomi readings, ordered longest-candidate-first so longer
// compound readings are preferred over single-mora ones during matching.
func newBundledFuriganaTable() *FuriganaTable {
	return &FuriganaTable{readings: map[rune][]string{
		'錆': {"さび"},
		'日': {"にち", "にほ", "ひ", "か"},
		'本': {"ほん", "もと"},
		'食': {"しょく", "た"},
		'鉄': {"てつ"},
		'語': {"ご"},
		'水': {"すい", "みず"},
		'火': {"か", "ひ"},
		'木': {"もく", "き"},
		'金': {"きん", "かね"},
		'土': {"ど", "つち"},
		'人': {"じん", "にん", "ひと"},
		'大': {"だい", "たい", "おお"},
		'小': {"しょう", "ちい"},
		'中': {"ちゅう", "なか"},
		'山': {"さん", "やま"},
		'川': {"せん", "かわ"},
		'見': {"けん", "み"},
		'行': {"ぎょう", "おこな", "こう", "い"},
		'来': {"らい", "く", "き"},
	}}
}

package importer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

// yomitanIndex mirrors index.json's recognized fields; anything else is
// ignored. Version/description/etc. are recorded verbatim into
// Dictionary.meta.
type yomitanIndex struct {
	Title       string `json:"title"`
	Revision    string `json:"revision"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Attribution string `json:"attribution"`
}

// termBankRow is Yomitan's 8-tuple term bank entry:
// [headword, reading, tags, rules, score, glossary, sequence, termTags].
type termBankRow [8]json.RawMessage

// tagBankRow is [name, category, order, notes, score].
type tagBankRow [5]json.RawMessage

func importYomitan(ctx context.Context, st store.Store, ra io.ReaderAt, size int64, cb Callback) (store.DictionaryID, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return 0, fmt.Errorf("%w: open zip: %v", internalerr.ErrStructuralImport, err)
	}

	idxFile := findZipFile(zr, "index.json")
	if idxFile == nil {
		return 0, fmt.Errorf("%w: missing index.json", internalerr.ErrStructuralImport)
	}
	idx, err := readYomitanIndex(idxFile)
	if err != nil {
		return 0, fmt.Errorf("%w: parse index.json: %v", internalerr.ErrStructuralImport, err)
	}

	meta := store.DictionaryMeta{
		Name:        idx.Title,
		Version:     idx.Revision,
		Description: idx.Description,
		URL:         idx.URL,
		Attribution: idx.Attribution,
		Format:      "yomitan",
	}
	cb(Event{Kind: EventParsedMeta, Meta: meta})

	termBanks := zipFilesWithPrefix(zr, "term_bank_")
	metaBanks := zipFilesWithPrefix(zr, "term_meta_bank_")
	tagBanks := zipFilesWithPrefix(zr, "tag_bank_")
	kanjiBanks := zipFilesWithPrefix(zr, "kanji_bank_")
	total := len(termBanks) + len(metaBanks) + len(tagBanks) + len(kanjiBanks)
	if total == 0 {
		return 0, fmt.Errorf("%w: no term_bank/term_meta_bank/tag_bank files", internalerr.ErrStructuralImport)
	}

	var entryErrors int
	done := 0
	progress := func() {
		done++
		if total > 0 {
			cb(Event{Kind: EventProgress, Fraction: float64(done) / float64(total)})
		}
	}

	dictID, err := st.WithImport(ctx, func(tx store.ImportTx) error {
		dict, err := tx.CreateDictionary(ctx, meta)
		if err != nil {
			return err
		}

		tags, err := loadTags(tagBanks)
		if err != nil {
			return err
		}

		for _, f := range termBanks {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
			}
			n, err := importTermBank(ctx, tx, dict, f, tags)
			if err != nil {
				return err
			}
			entryErrors += n
			progress()
		}

		for _, f := range metaBanks {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
			}
			n, err := importMetaBank(ctx, tx, dict, f)
			if err != nil {
				return err
			}
			entryErrors += n
			progress()
		}

		for _, f := range kanjiBanks {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
			}
			n, err := importKanjiBank(ctx, tx, dict, f)
			if err != nil {
				return err
			}
			entryErrors += n
			progress()
		}

		for range tagBanks {
			progress()
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	cb(Event{Kind: EventDone, EntryErrors: entryErrors})
	return dictID, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func zipFilesWithPrefix(zr *zip.Reader, prefix string) []*zip.File {
	var out []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".json") {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func readYomitanIndex(f *zip.File) (yomitanIndex, error) {
	rc, err := f.Open()
	if err != nil {
		return yomitanIndex{}, err
	}
	defer rc.Close()

	var idx yomitanIndex
	if err := json.NewDecoder(rc).Decode(&idx); err != nil {
		return yomitanIndex{}, err
	}
	return idx, nil
}

func loadTags(tagBanks []*zip.File) (map[string]codec.Tag, error) {
	tags := make(map[string]codec.Tag)
	for _, f := range tagBanks {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrStructuralImport, f.Name, err)
		}
		var rows []tagBankRow
		err = json.NewDecoder(rc).Decode(&rows)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", internalerr.ErrStructuralImport, f.Name, err)
		}
		for _, row := range rows {
			var name, notes string
			if err := json.Unmarshal(row[0], &name); err != nil {
				continue
			}
			_ = json.Unmarshal(row[3], &notes)
			tags[name] = codec.Tag{Name: name, Description: notes}
		}
	}
	return tags, nil
}

// importTermBank parses one term_bank_N.json, inserting one Glossary
// record plus term links per row. Malformed rows are counted and
// skipped; they do not abort the import.
func importTermBank(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, f *zip.File, tags map[string]codec.Tag) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}
	defer rc.Close()

	var rows []termBankRow
	if err := json.NewDecoder(rc).Decode(&rows); err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}

	entryErrors := 0
	for _, row := range rows {
		headword, reading, tagNames, glossaryContent, err := parseTermRow(row)
		if err != nil {
			entryErrors++
			continue
		}

		data := codec.GlossaryData{
			Content: glossaryContent,
			Tags:    resolveTags(tagNames, tags),
		}
		encoded, err := codec.EncodeGlossary(data)
		if err != nil {
			entryErrors++
			continue
		}

		recID, err := tx.InsertRecord(ctx, dict, uint8(codec.KindGlossary), encoded)
		if err != nil {
			entryErrors++
			continue
		}
		if err := tx.LinkTerm(ctx, dict, recID, headword, reading); err != nil {
			entryErrors++
			continue
		}
	}
	return entryErrors, nil
}

// kanjiBankRow is Yomitan's kanji bank entry:
// [character, onyomi, kunyomi, tags, meanings, stats].
type kanjiBankRow [6]json.RawMessage

// kanjiTag marks every record imported from a kanji bank, distinguishing
// kanji entries from term entries sharing the same headword.
const kanjiTag = "kanji"

// importKanjiBank parses one kanji_bank_N.json, inserting one Glossary
// record per character with a headword-only (empty reading) term link:
// Yomitan's character-reference entries have no single reading, so they
// are looked up by headword alone.
func importKanjiBank(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, f *zip.File) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}
	defer rc.Close()

	var rows []kanjiBankRow
	if err := json.NewDecoder(rc).Decode(&rows); err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}

	entryErrors := 0
	for _, row := range rows {
		character, content, err := parseKanjiRow(row)
		if err != nil {
			entryErrors++
			continue
		}

		data := codec.GlossaryData{
			Content: content,
			Tags:    []codec.Tag{{Name: kanjiTag}},
		}
		encoded, err := codec.EncodeGlossary(data)
		if err != nil {
			entryErrors++
			continue
		}

		recID, err := tx.InsertRecord(ctx, dict, uint8(codec.KindGlossary), encoded)
		if err != nil {
			entryErrors++
			continue
		}
		if err := tx.LinkTerm(ctx, dict, recID, character, ""); err != nil {
			entryErrors++
			continue
		}
	}
	return entryErrors, nil
}

func parseKanjiRow(row kanjiBankRow) (character string, content []codec.ContentNode, err error) {
	if err = json.Unmarshal(row[0], &character); err != nil {
		return
	}
	if character == "" {
		err = fmt.Errorf("kanji row has no character")
		return
	}

	var onyomi, kunyomi string
	_ = json.Unmarshal(row[1], &onyomi)
	_ = json.Unmarshal(row[2], &kunyomi)

	var meanings []string
	if err = json.Unmarshal(row[4], &meanings); err != nil {
		return
	}

	content = make([]codec.ContentNode, 0, len(meanings)+1)
	if onyomi != "" || kunyomi != "" {
		content = append(content, codec.ContentNode{Kind: codec.NodeText, Text: strings.TrimSpace(onyomi + " " + kunyomi)})
	}
	for _, m := range meanings {
		content = append(content, codec.ContentNode{Kind: codec.NodeText, Text: m})
	}
	return character, content, nil
}

func parseTermRow(row termBankRow) (headword, reading string, tagNames []string, content []codec.ContentNode, err error) {
	if err = json.Unmarshal(row[0], &headword); err != nil {
		return
	}
	if err = json.Unmarshal(row[1], &reading); err != nil {
		return
	}
	var tagField string
	if len(row[2]) > 0 {
		_ = json.Unmarshal(row[2], &tagField)
		if tagField != "" {
			tagNames = strings.Fields(tagField)
		}
	}
	content, err = parseGlossaryField(row[5])
	if err != nil {
		return
	}
	if headword == "" && reading == "" {
		err = fmt.Errorf("term row has no headword or reading")
	}
	return
}

// parseGlossaryField decodes Yomitan's glossary column, which is an array
// whose items are either plain strings (plain text) or structured content
// objects. Unrecognized item shapes become opaque nodes so they survive
// round-trip rather than being dropped.
func parseGlossaryField(raw json.RawMessage) ([]codec.ContentNode, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	nodes := make([]codec.ContentNode, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			nodes = append(nodes, codec.ContentNode{Kind: codec.NodeText, Text: text})
			continue
		}
		nodes = append(nodes, codec.ContentNode{
			Kind:        codec.NodeOpaque,
			OpaqueTag:   "yomitan-structured-content",
			OpaqueBytes: append([]byte(nil), item...),
		})
	}
	return nodes, nil
}

func resolveTags(names []string, known map[string]codec.Tag) []codec.Tag {
	out := make([]codec.Tag, 0, len(names))
	for _, n := range names {
		if t, ok := known[n]; ok {
			out = append(out, t)
		} else {
			out = append(out, codec.Tag{Name: n})
		}
	}
	return out
}

// metaBankRow is [headword, mode, data] where mode is "freq" or "pitch".
type metaBankRow [3]json.RawMessage

func importMetaBank(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, f *zip.File) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}
	defer rc.Close()

	var rows []metaBankRow
	if err := json.NewDecoder(rc).Decode(&rows); err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", internalerr.ErrStructuralImport, f.Name, err)
	}

	entryErrors := 0
	for _, row := range rows {
		var headword, mode string
		if err := json.Unmarshal(row[0], &headword); err != nil {
			entryErrors++
			continue
		}
		if err := json.Unmarshal(row[1], &mode); err != nil {
			entryErrors++
			continue
		}

		switch mode {
		case "freq":
			if err := importFrequencyEntry(ctx, tx, dict, headword, row[2]); err != nil {
				entryErrors++
			}
		case "pitch":
			if err := importPitchEntry(ctx, tx, dict, headword, row[2]); err != nil {
				entryErrors++
			}
		default:
			entryErrors++
		}
	}
	return entryErrors, nil
}

func importFrequencyEntry(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, headword string, raw json.RawMessage) error {
	var asInt int64
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return tx.InsertFrequency(ctx, dict, headword, "", store.FrequencyRank, asInt)
	}

	var obj struct {
		Value        int64  `json:"value"`
		DisplayValue string `json:"displayValue"`
		Reading      string `json:"reading"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("malformed frequency entry for %q: %w", headword, err)
	}
	return tx.InsertFrequency(ctx, dict, headword, obj.Reading, store.FrequencyRank, obj.Value)
}

func importPitchEntry(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, headword string, raw json.RawMessage) error {
	var obj struct {
		Reading string `json:"reading"`
		Pitches []struct {
			Position int      `json:"position"`
			Tags     []string `json:"tags"`
		} `json:"pitches"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("malformed pitch entry for %q: %w", headword, err)
	}
	if len(obj.Pitches) == 0 {
		return fmt.Errorf("pitch entry for %q has no pitches", headword)
	}

	accents := make([]codec.PitchAccent, 0, len(obj.Pitches))
	for _, p := range obj.Pitches {
		accents = append(accents, codec.PitchAccent{
			Position: p.Position,
			Category: classifyPitch(p.Position, len([]rune(obj.Reading))),
		})
	}

	encoded, err := codec.EncodeJpPitch(codec.JpPitchData{Accents: accents})
	if err != nil {
		return err
	}
	recID, err := tx.InsertRecord(ctx, dict, uint8(codec.KindJpPitch), encoded)
	if err != nil {
		return err
	}
	return tx.LinkTerm(ctx, dict, recID, headword, obj.Reading)
}

// classifyPitch derives the Heiban/Atamadaka/Nakadaka/Odaka category from
// the downstep position relative to the mora count, per standard
// Japanese pitch-accent classification.
func classifyPitch(position, moraCount int) codec.PitchCategory {
	switch {
	case position == 0:
		return codec.PitchHeiban
	case position == 1:
		return codec.PitchAtamadaka
	case position == moraCount:
		return codec.PitchOdaka
	default:
		return codec.PitchNakadaka
	}
}

package importer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/internalerr"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func importYomichanAudio(ctx context.Context, st store.Store, ra io.ReaderAt, size int64, format Format, cb Callback) (store.DictionaryID, error) {
	switch format {
	case FormatYomichanAudioZip:
		return importYomichanAudioZip(ctx, st, ra, size, cb)
	case FormatYomichanAudioTarXZ:
		return importYomichanAudioTarXZ(ctx, st, ra, size, cb)
	default:
		return 0, fmt.Errorf("%w: not an audio format", internalerr.ErrStructuralImport)
	}
}

func importYomichanAudioZip(ctx context.Context, st store.Store, ra io.ReaderAt, size int64, cb Callback) (store.DictionaryID, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return 0, fmt.Errorf("%w: open zip: %v", internalerr.ErrStructuralImport, err)
	}

	idxFile := findZipFile(zr, "index.json")
	if idxFile == nil {
		return 0, fmt.Errorf("%w: missing index.json", internalerr.ErrStructuralImport)
	}
	rc, err := idxFile.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open index.json: %v", internalerr.ErrStructuralImport, err)
	}
	entries, err := parseAudioIndex(rc)
	rc.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: parse index.json: %v", internalerr.ErrStructuralImport, err)
	}

	cb(Event{Kind: EventParsedMeta, Meta: store.DictionaryMeta{Name: "Audio", Format: "yomichan-audio"}})

	fileByName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		fileByName[f.Name] = f
	}

	entryErrors := 0
	dictID, err := st.WithImport(ctx, func(tx store.ImportTx) error {
		dict, err := tx.CreateDictionary(ctx, store.DictionaryMeta{Name: "Audio", Format: "yomichan-audio"})
		if err != nil {
			return err
		}
		for i, e := range entries {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
			}
			f, ok := fileByName[e.File]
			if !ok {
				entryErrors++
				continue
			}
			data, err := readZipFile(f)
			if err != nil {
				entryErrors++
				continue
			}
			if err := insertAudioRecord(ctx, tx, dict, e.Headword, e.Reading, data); err != nil {
				entryErrors++
				continue
			}
			if len(entries) > 0 {
				cb(Event{Kind: EventProgress, Fraction: float64(i+1) / float64(len(entries))})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	cb(Event{Kind: EventDone, EntryErrors: entryErrors})
	return dictID, nil
}

func importYomichanAudioTarXZ(ctx context.Context, st store.Store, ra io.ReaderAt, size int64, cb Callback) (store.DictionaryID, error) {
	sr := io.NewSectionReader(ra, 0, size)
	xzr, err := xz.NewReader(sr)
	if err != nil {
		return 0, fmt.Errorf("%w: open xz stream: %v", internalerr.ErrStructuralImport, err)
	}
	tr := tar.NewReader(xzr)

	blobs := make(map[string][]byte)
	var entries []audioIndexEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: read tar entry: %v", internalerr.ErrStructuralImport, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return 0, fmt.Errorf("%w: read %s: %v", internalerr.ErrStructuralImport, hdr.Name, err)
		}
		if hdr.Name == "index.json" {
			parsed, err := parseAudioIndex(bytes.NewReader(data))
			if err != nil {
				return 0, fmt.Errorf("%w: parse index.json: %v", internalerr.ErrStructuralImport, err)
			}
			entries = parsed
			continue
		}
		blobs[hdr.Name] = data
	}
	if entries == nil {
		return 0, fmt.Errorf("%w: missing index.json", internalerr.ErrStructuralImport)
	}

	cb(Event{Kind: EventParsedMeta, Meta: store.DictionaryMeta{Name: "Audio", Format: "yomichan-audio"}})

	entryErrors := 0
	dictID, err := st.WithImport(ctx, func(tx store.ImportTx) error {
		dict, err := tx.CreateDictionary(ctx, store.DictionaryMeta{Name: "Audio", Format: "yomichan-audio"})
		if err != nil {
			return err
		}
		for i, e := range entries {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", internalerr.ErrCanceled, err)
			}
			data, ok := blobs[e.File]
			if !ok {
				entryErrors++
				continue
			}
			if err := insertAudioRecord(ctx, tx, dict, e.Headword, e.Reading, data); err != nil {
				entryErrors++
				continue
			}
			if len(entries) > 0 {
				cb(Event{Kind: EventProgress, Fraction: float64(i+1) / float64(len(entries))})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	cb(Event{Kind: EventDone, EntryErrors: entryErrors})
	return dictID, nil
}

func insertAudioRecord(ctx context.Context, tx store.ImportTx, dict store.DictionaryID, headword, reading string, data []byte) error {
	encoded, err := codec.EncodeAudio(codec.AudioData{Clip: codec.AudioClip{Provider: "yomichan-audio", Data: data}})
	if err != nil {
		return err
	}
	recID, err := tx.InsertRecord(ctx, dict, uint8(codec.KindAudio), encoded)
	if err != nil {
		return err
	}
	return tx.LinkTerm(ctx, dict, recID, headword, reading)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

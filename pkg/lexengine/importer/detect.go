package importer

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// detectFormat peeks the archive to classify it: a zip containing any
// Yomitan bank file (term_bank_, term_meta_bank_, kanji_bank_ or
// tag_bank_ *.json) is Yomitan; a zip with no bank files but with an
// index.json is a Yomichan audio pack. Anything that is not a zip but
// opens as a non-empty xz stream is taken to be a tar/xz audio pack; its
// index.json is only looked for during the import itself.
//
// No third-party archive-reading library appears anywhere in the example
// corpus (see DESIGN.md), so this uses the standard library's
// archive/zip and archive/tar directly.
func detectFormat(ra io.ReaderAt, size int64) (Format, error) {
	if zr, err := zip.NewReader(ra, size); err == nil {
		return detectZipFormat(zr)
	}

	sr := io.NewSectionReader(ra, 0, size)
	xzr, err := xz.NewReader(sr)
	if err != nil {
		return FormatUnknown, fmt.Errorf("neither zip nor xz: %w", err)
	}
	if err := probeTarIndex(xzr); err != nil {
		return FormatUnknown, err
	}
	return FormatYomichanAudioTarXZ, nil
}

func detectZipFormat(zr *zip.Reader) (Format, error) {
	var hasBank, hasIndex bool
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "term_bank_"),
			strings.HasPrefix(f.Name, "term_meta_bank_"),
			strings.HasPrefix(f.Name, "kanji_bank_"),
			strings.HasPrefix(f.Name, "tag_bank_"):
			hasBank = true
		case f.Name == "index.json":
			hasIndex = true
		}
	}
	switch {
	case hasBank:
		return FormatYomitan, nil
	case hasIndex:
		return FormatYomichanAudioZip, nil
	default:
		return FormatUnknown, fmt.Errorf("zip archive has neither Yomitan bank files nor index.json")
	}
}

// probeTarIndex checks only that the decompressed stream yields at least
// one byte, reading at most 512 bytes of r (the caller re-reads from the
// start for the real import). It does not look for index.json; a missing
// index.json is reported by the import itself.
func probeTarIndex(r io.Reader) error {
	var peek [512]byte
	n, err := io.ReadFull(r, peek[:])
	if err != nil && n == 0 {
		return fmt.Errorf("empty tar/xz stream")
	}
	return nil
}

// audioIndexEntry is one row of a Yomichan audio pack's index.json.
type audioIndexEntry struct {
	Headword string `json:"expression"`
	Reading  string `json:"reading"`
	File     string `json:"file"`
}

func parseAudioIndex(r io.Reader) ([]audioIndexEntry, error) {
	var raw map[string][]struct {
		Reading string `json:"reading"`
		File    string `json:"file"`
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	var out []audioIndexEntry
	for headword, files := range raw {
		for _, f := range files {
			out = append(out, audioIndexEntry{Headword: headword, Reading: f.Reading, File: f.File})
		}
	}
	return out, nil
}

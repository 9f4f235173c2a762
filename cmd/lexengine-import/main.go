package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/cognicore/lexengine/pkg/lexengine"
	"github.com/cognicore/lexengine/pkg/lexengine/importer"
)

func main() {
	var (
		dataDir    = flag.String("data", "", "Engine data directory (required)")
		configPath = flag.String("config", "", "Engine config YAML (optional)")
		archive    = flag.String("archive", "", "Dictionary archive to import (required)")
		enable     = flag.Bool("enable", true, "Enable the dictionary for the current profile after import")
	)
	flag.Parse()

	if *dataDir == "" || *archive == "" {
		log.Fatal("--data and --archive are required")
	}

	ctx := context.Background()
	engine, err := lexengine.Open(ctx, *dataDir, lexengine.Options{ConfigPath: *configPath})
	if err != nil {
		log.Fatal("open engine", "err", err)
	}
	defer engine.Close()

	f, err := os.Open(*archive)
	if err != nil {
		log.Fatal("open archive", "err", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		log.Fatal("stat archive", "err", err)
	}

	cb := func(e importer.Event) {
		switch e.Kind {
		case importer.EventDeterminedKind:
			fmt.Printf("format: %s\n", e.Format)
		case importer.EventParsedMeta:
			fmt.Printf("dictionary: %s %s\n", e.Meta.Name, e.Meta.Version)
		case importer.EventProgress:
			fmt.Printf("progress: %.0f%%\n", e.Fraction*100)
		case importer.EventDone:
			fmt.Printf("done: %d entry error(s)\n", e.EntryErrors)
		}
	}

	dictID, err := engine.ImportDictionary(ctx, fileSource{f, info.Size()}, cb)
	if err != nil {
		log.Fatal("import", "err", err)
	}
	fmt.Printf("imported dictionary %d\n", dictID)

	if !*enable {
		return
	}
	cfg, err := engine.GetConfig(ctx)
	if err != nil {
		log.Fatal("get config", "err", err)
	}
	if err := engine.EnableDictionary(ctx, cfg.CurrentProfileID, dictID); err != nil {
		log.Fatal("enable dictionary", "err", err)
	}
}

// fileSource adapts an already-open *os.File to importer.Source.
type fileSource struct {
	f    *os.File
	size int64
}

func (s fileSource) Open() (io.ReaderAt, int64, error) {
	return s.f, s.size, nil
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/cognicore/lexengine/pkg/lexengine"
	"github.com/cognicore/lexengine/pkg/lexengine/codec"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
)

func main() {
	var (
		dataDir    = flag.String("data", "", "Engine data directory (required)")
		configPath = flag.String("config", "", "Engine config YAML (optional)")
		query      = flag.String("query", "", "One-shot sentence to look up (non-interactive mode)")
		cursor     = flag.Int("cursor", 0, "Cursor position (rune offset) into --query")
	)
	flag.Parse()

	if *dataDir == "" {
		log.Fatal("--data required")
	}

	ctx := context.Background()
	engine, err := lexengine.Open(ctx, *dataDir, lexengine.Options{ConfigPath: *configPath})
	if err != nil {
		log.Fatal("open engine", "err", err)
	}
	defer engine.Close()

	cfg, err := engine.GetConfig(ctx)
	if err != nil {
		log.Fatal("get config", "err", err)
	}

	if *query != "" {
		printLookup(ctx, engine, cfg.CurrentProfileID, *query, *cursor)
		return
	}

	fmt.Println("lexengine lookup REPL — type a sentence, Ctrl+D to exit")
	fmt.Println("prefix the cursor position with @ to pick a word, e.g. \"食べ@なかった\"")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sentence, at := splitCursorMarker(line)
		printLookup(ctx, engine, cfg.CurrentProfileID, sentence, at)
	}
	fmt.Println("\ngoodbye")
}

// splitCursorMarker extracts an "@" cursor marker from line, returning the
// sentence with the marker removed and the rune offset it marked. Absent a
// marker, the cursor is 0.
func splitCursorMarker(line string) (string, int) {
	idx := strings.Index(line, "@")
	if idx < 0 {
		return line, 0
	}
	before := line[:idx]
	after := line[idx+1:]
	return before + after, utf8.RuneCountInString(before)
}

func printLookup(ctx context.Context, engine *lexengine.Engine, profile store.ProfileID, sentence string, cursor int) {
	groups, err := engine.Lookup(ctx, profile, sentence, cursor, nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(groups) == 0 {
		fmt.Println("(no matches)")
		return
	}
	for _, g := range groups {
		term := g.Term.Headword
		if g.Term.Reading != "" {
			term = fmt.Sprintf("%s【%s】", term, g.Term.Reading)
		}
		fmt.Printf("%s\n", term)
		for src, glosses := range g.GlossaryGroups {
			for _, gloss := range glosses {
				fmt.Printf("  [%d] %s\n", src, renderContent(gloss.Content))
			}
		}
		for _, p := range g.Pitches {
			fmt.Printf("  pitch: %d (audio: %d)\n", p.Accent.Category, len(p.Audio))
		}
	}
}

// renderContent flattens a glossary content tree into plain text, good
// enough for terminal display. Structured nodes (lists, links, images)
// show their text children inline.
func renderContent(nodes []codec.ContentNode) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteString("; ")
		}
		switch n.Kind {
		case codec.NodeText:
			b.WriteString(n.Text)
		case codec.NodeList:
			b.WriteString(renderContent(n.Children))
		case codec.NodeLink:
			b.WriteString(renderContent(n.Content))
		case codec.NodeRuby:
			b.WriteString(renderContent(n.Base))
		case codec.NodeOpaque:
			b.WriteString("[" + n.OpaqueTag + "]")
		}
	}
	return b.String()
}

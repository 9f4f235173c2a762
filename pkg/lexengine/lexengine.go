// Package lexengine is the top-level facade: an owned handle that wires
// the store, deinflector, lookup engine, and presentation builder into
// the single entry point embedders use. An Options struct plus a New-style
// constructor; no package-level globals.
package lexengine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/cognicore/lexengine/pkg/lexengine/config"
	"github.com/cognicore/lexengine/pkg/lexengine/deinflect"
	"github.com/cognicore/lexengine/pkg/lexengine/importer"
	"github.com/cognicore/lexengine/pkg/lexengine/lookup"
	"github.com/cognicore/lexengine/pkg/lexengine/present"
	"github.com/cognicore/lexengine/pkg/lexengine/store"
	"github.com/cognicore/lexengine/pkg/lexengine/store/sqlite"
)

// Engine is the owned handle embedders hold for the lifetime of the
// dictionary lookup engine. It is not safe to share across goroutines
// that might concurrently Close it, but its methods are otherwise
// concurrency-safe (the store and limiter handle their own locking).
type Engine struct {
	store   store.Store
	lookup  *lookup.Engine
	present *present.Builder
	limiter *importer.Limiter
	cfg     config.EngineConfig
	watcher *config.Watcher[store.Config]

	logger *log.Logger
}

// Options configures Open.
type Options struct {
	// ConfigPath is a YAML file following config.EngineConfig's shape. An
	// empty path uses defaults.
	ConfigPath string
	// DBPath is the SQLite database file. Defaults to "lexengine.db"
	// inside dataDir.
	DBPath string
	Logger *log.Logger
}

// Open builds an Engine: loads configuration, opens the SQLite store
// (creating and seeding it if absent), builds the language analyzer
// named by the config, and wires the lookup and presentation layers atop
// it.
func Open(ctx context.Context, dataDir string, opts Options) (*Engine, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "lexengine.db")
	}

	st, err := sqlite.Open(ctx, dbPath, sqlite.Options{MaxDBConnections: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	analyzer, err := deinflect.New(cfg.Language, cfg.MaxRequestLen)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build analyzer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	lk := lookup.New(st, analyzer)
	lk.Logger = logger

	return &Engine{
		store:   st,
		lookup:  lk,
		present: present.NewBuilder(),
		limiter: importer.NewLimiter(cfg.MaxConcurrentImports),
		cfg:     cfg,
		watcher: config.NewWatcher[store.Config](),
		logger:  logger,
	}, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Lookup runs a deinflection-aware term lookup against the given profile
// and folds the result into presentation Groups.
func (e *Engine) Lookup(ctx context.Context, profile store.ProfileID, sentence string, cursor int, wantedKinds []uint8) ([]present.Group, error) {
	hits, err := e.lookup.Lookup(ctx, profile, sentence, cursor, wantedKinds)
	if err != nil {
		return nil, err
	}
	return e.present.Build(hits), nil
}

// ImportDictionary imports src through the engine's concurrency limiter.
func (e *Engine) ImportDictionary(ctx context.Context, src importer.Source, cb importer.Callback) (store.DictionaryID, error) {
	return e.limiter.Import(ctx, e.store, src, cb)
}

// ListDictionaries returns every imported dictionary in priority order.
func (e *Engine) ListDictionaries(ctx context.Context) ([]store.Dictionary, error) {
	return e.store.ListDictionaries(ctx)
}

// EnableDictionary enables dict for profile.
func (e *Engine) EnableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	return e.store.EnableDictionary(ctx, profile, dict)
}

// DisableDictionary disables dict for profile.
func (e *Engine) DisableDictionary(ctx context.Context, profile store.ProfileID, dict store.DictionaryID) error {
	return e.store.DisableDictionary(ctx, profile, dict)
}

// SwapDictionaryPositions swaps two dictionaries' priority order.
func (e *Engine) SwapDictionaryPositions(ctx context.Context, a, b store.DictionaryID) error {
	return e.store.SwapPositions(ctx, a, b)
}

// RemoveDictionary deletes a dictionary and everything it cascades to.
func (e *Engine) RemoveDictionary(ctx context.Context, id store.DictionaryID) error {
	return e.store.DeleteDictionary(ctx, id)
}

// SetSortingDictionary sets (or clears, with dict == nil) the dictionary
// that supplies ranking frequency data for profile.
func (e *Engine) SetSortingDictionary(ctx context.Context, profile store.ProfileID, dict *store.DictionaryID) error {
	return e.store.SetSortingDictionary(ctx, profile, dict)
}

// CreateProfile creates a new named profile.
func (e *Engine) CreateProfile(ctx context.Context, name string) (store.ProfileID, error) {
	return e.store.CreateProfile(ctx, name)
}

// DeleteProfile deletes a profile. Fails if it is the last remaining one.
func (e *Engine) DeleteProfile(ctx context.Context, id store.ProfileID) error {
	return e.store.DeleteProfile(ctx, id)
}

// SetCurrentProfile switches the active profile and notifies any
// SubscribeConfigChanges subscribers.
func (e *Engine) SetCurrentProfile(ctx context.Context, id store.ProfileID) error {
	if err := e.store.SetCurrentProfile(ctx, id); err != nil {
		return err
	}
	e.publishConfig(ctx)
	return nil
}

// SetTexthookerURL sets the texthooker source URL and notifies
// subscribers.
func (e *Engine) SetTexthookerURL(ctx context.Context, url string) error {
	if err := e.store.SetTexthookerURL(ctx, url); err != nil {
		return err
	}
	e.publishConfig(ctx)
	return nil
}

// SetAnkiConnectURL sets the AnkiConnect endpoint and notifies
// subscribers.
func (e *Engine) SetAnkiConnectURL(ctx context.Context, url string) error {
	if err := e.store.SetAnkiConnectURL(ctx, url); err != nil {
		return err
	}
	e.publishConfig(ctx)
	return nil
}

// GetConfig returns the current runtime config singleton.
func (e *Engine) GetConfig(ctx context.Context) (store.Config, error) {
	return e.store.GetConfig(ctx)
}

// SubscribeConfigChanges returns a channel receiving the runtime config
// singleton (current profile, texthooker/AnkiConnect URLs) every time one
// of this Engine's setters changes it. This is an optional convenience:
// embedders that only call setters themselves and track state on their
// own don't need it.
func (e *Engine) SubscribeConfigChanges() <-chan store.Config {
	return e.watcher.Subscribe()
}

func (e *Engine) publishConfig(ctx context.Context) {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		e.logger.Warn("publishConfig: reload failed", "err", err)
		return
	}
	e.watcher.Publish(cfg)
}

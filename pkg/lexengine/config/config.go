// Package config loads the engine's YAML configuration surface:
// read-file-then-unmarshal, with defaults filled in where a key is
// absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lexengine/pkg/lexengine/deinflect"
)

// EngineConfig is the engine-wide configuration surface.
type EngineConfig struct {
	MaxDBConnections     int              `yaml:"max_db_connections"`
	MaxConcurrentImports int              `yaml:"max_concurrent_imports"`
	MaxRequestLen        int              `yaml:"max_request_len"`
	Language             deinflect.Language `yaml:"language"`
}

// defaults match the engine's documented configuration knobs.
const (
	defaultMaxDBConnections     = 8
	defaultMaxConcurrentImports = 4
	defaultMaxRequestLen        = 16
)

func defaultConfig() EngineConfig {
	return EngineConfig{
		MaxDBConnections:     defaultMaxDBConnections,
		MaxConcurrentImports: defaultMaxConcurrentImports,
		MaxRequestLen:        defaultMaxRequestLen,
		Language:             deinflect.LanguageJapanese,
	}
}

// Load reads path as YAML and fills any zero-valued field with its
// default. An empty path returns the defaults unchanged, mirroring
// Loader.Load's empty-path-means-defaults idiom.
func Load(path string) (EngineConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.MaxDBConnections <= 0 {
		cfg.MaxDBConnections = defaultMaxDBConnections
	}
	if cfg.MaxConcurrentImports <= 0 {
		cfg.MaxConcurrentImports = defaultMaxConcurrentImports
	}
	if cfg.MaxRequestLen <= 0 {
		cfg.MaxRequestLen = defaultMaxRequestLen
	}
	if cfg.Language == "" {
		cfg.Language = deinflect.LanguageJapanese
	}

	return cfg, nil
}

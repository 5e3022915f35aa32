package config

import (
	"path/filepath"
	"time"
)

// DirName is the per-project directory holding config.yml and the catalog.
const DirName = ".nbfunc"

// Config represents the complete nbfunc configuration.
// It can be loaded from .nbfunc/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Python  PythonConfig  `yaml:"python" mapstructure:"python"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
}

// PathsConfig defines which notebooks to discover and which paths to skip.
type PathsConfig struct {
	Notebooks []string `yaml:"notebooks" mapstructure:"notebooks"` // glob patterns for notebook files
	Ignore    []string `yaml:"ignore" mapstructure:"ignore"`       // glob patterns to ignore
}

// PythonConfig selects the interpreter used to execute notebook functions.
type PythonConfig struct {
	Runtime     string        `yaml:"runtime" mapstructure:"runtime"`         // "embedded" or "system"
	Interpreter string        `yaml:"interpreter" mapstructure:"interpreter"` // executable for the system runtime
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`         // per-execution limit
}

// CacheConfig bounds the in-memory cache of parsed notebooks.
type CacheConfig struct {
	Capacity int           `yaml:"capacity" mapstructure:"capacity"` // number of notebooks
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// StorageConfig locates the SQLite catalog.
type StorageConfig struct {
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"` // Empty means .nbfunc/catalog.db
}

// WatchConfig tunes notebook change detection.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// SearchConfig holds full-text search defaults.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
}

// Runtimes accepted in python.runtime.
const (
	RuntimeEmbedded = "embedded"
	RuntimeSystem   = "system"
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Notebooks: []string{
				"**/*.ipynb",
			},
			Ignore: []string{
				".ipynb_checkpoints/**",
				"**/.ipynb_checkpoints/**",
				".git/**",
				"node_modules/**",
				".venv/**",
				"venv/**",
			},
		},
		Python: PythonConfig{
			Runtime:     RuntimeEmbedded,
			Interpreter: "python3",
			Timeout:     30 * time.Second,
		},
		Cache: CacheConfig{
			Capacity: 128,
			TTL:      10 * time.Minute,
		},
		Storage: StorageConfig{
			CatalogPath: "", // Empty means <root>/.nbfunc/catalog.db
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 15,
		},
	}
}

// CatalogPath resolves the catalog location relative to rootDir.
func (c *Config) CatalogPath(rootDir string) string {
	if c.Storage.CatalogPath == "" {
		return filepath.Join(rootDir, DirName, "catalog.db")
	}
	if filepath.IsAbs(c.Storage.CatalogPath) {
		return c.Storage.CatalogPath
	}
	return filepath.Join(rootDir, c.Storage.CatalogPath)
}

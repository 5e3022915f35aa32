package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader that reads an explicit config file instead
// of searching <rootDir>/.nbfunc.
func NewFileLoader(configFile string) Loader {
	return &loader{
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (NBFUNC_*)
// 2. Config file (.nbfunc/config.yml or .nbfunc/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	}

	// Replace . with _ in env var names (e.g., NBFUNC_PYTHON_RUNTIME)
	v.SetEnvPrefix("NBFUNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Python configuration
	v.BindEnv("python.runtime")
	v.BindEnv("python.interpreter")
	v.BindEnv("python.timeout")

	// Cache configuration
	v.BindEnv("cache.capacity")
	v.BindEnv("cache.ttl")

	// Storage / watch / search
	v.BindEnv("storage.catalog_path")
	v.BindEnv("watch.debounce")
	v.BindEnv("search.default_limit")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.notebooks", defaults.Paths.Notebooks)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("python.runtime", defaults.Python.Runtime)
	v.SetDefault("python.interpreter", defaults.Python.Interpreter)
	v.SetDefault("python.timeout", defaults.Python.Timeout)

	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("cache.ttl", defaults.Cache.TTL)

	v.SetDefault("storage.catalog_path", defaults.Storage.CatalogPath)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("search.default_limit", defaults.Search.DefaultLimit)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

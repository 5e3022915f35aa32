package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for root command:
// - loadConfig reads .nbfunc/config.yml under the root directory
// - loadConfig prefers --config when set
// - loadConfig reports invalid configuration
// - version prints the build information
// - Every command is registered

// Tests in this file touch package-level flags and must not run in parallel.

func TestLoadConfig_FromRootDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".nbfunc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".nbfunc", "config.yml"), []byte("python:\n  timeout: 3s\n"), 0644))

	cfg, err := loadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Python.Timeout)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  default_limit: 4\n"), 0644))

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	cfg, err := loadConfig(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Search.DefaultLimit)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".nbfunc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".nbfunc", "config.yml"), []byte("python:\n  runtime: jython\n"), 0644))

	_, err := loadConfig(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "nbfunc dev\n")
}

func TestRootCommand_Subcommands(t *testing.T) {
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range []string{"list", "imports", "source", "body", "describe", "exec", "search", "catalog", "watch", "mcp", "version"} {
		assert.True(t, registered[name], "missing command %s", name)
	}
}

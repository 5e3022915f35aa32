package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// Test Plan for notebook commands:
// - list prints sorted names one per line, --match filters them
// - list rejects invalid globs
// - imports prints each distinct import once
// - source prints the imports followed by every body
// - body prints the last definition
// - unknown notebooks and names return NotFound errors

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "notebooks", name)
}

func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(fixturePath(name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRunList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		match string
		want  string
	}{
		{"all names", "", "area\nfactorial\nmultiplicar\nsaludo\nsuma\ntotal\n"},
		{"glob", "s*", "saludo\nsuma\n"},
		{"no match", "zz*", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, runList(&out, fixturePath("functions.ipynb"), tt.match))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunList_Errors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runList(&out, fixturePath("functions.ipynb"), "[unclosed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --match pattern")

	err = runList(&out, fixturePath("missing.ipynb"), "")
	require.Error(t, err)
	assert.True(t, notebook.IsNotFound(err))
	assert.Empty(t, out.String())
}

func TestRunImports(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, runImports(&out, fixturePath("functions.ipynb")))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.ElementsMatch(t, []string{"import math", "from functools import reduce"}, lines)
}

func TestRunSource(t *testing.T) {
	t.Parallel()

	idx, err := notebook.Open(fixturePath("functions.ipynb"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runSource(&out, fixturePath("functions.ipynb"), "area"))

	want, err := idx.SourceFor("area")
	require.NoError(t, err)
	assert.Equal(t, want, out.String())
	assert.True(t, strings.HasPrefix(out.String(), idx.ImportSource()))
}

func TestRunBody(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, runBody(&out, fixturePath("functions.ipynb"), "factorial"))

	assert.Equal(t,
		"def factorial(n):\n    if n <= 1:\n        return 1\n    return multiplicar(n, factorial(n - 1))\n\n",
		out.String())
}

func TestRunBody_UnknownName(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runBody(&out, fixturePath("functions.ipynb"), "funcion_inventada")

	require.Error(t, err)
	assert.ErrorIs(t, err, notebook.ErrNotFound)
	assert.Equal(t, "funcion_inventada doesn't exist in the notebook", err.Error())
}

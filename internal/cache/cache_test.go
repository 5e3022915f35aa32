package cache

// Test Plan for IndexCache:
// - Load parses a notebook once and serves later loads from memory
// - Load reparses after the file changes on disk
// - Load of a missing notebook fails with a not-found error
// - Invalidate forces a reparse
// - Relative and absolute paths share one entry
// - Non-positive capacity is rejected

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

const oneFunction = `{
 "cells": [
  {
   "cell_type": "code",
   "source": [
    "def uno():\n",
    "    return 1"
   ]
  }
 ]
}
`

const twoFunctions = `{
 "cells": [
  {
   "cell_type": "code",
   "source": [
    "def uno():\n",
    "    return 1\n",
    "def dos():\n",
    "    return 2"
   ]
  }
 ]
}
`

func newTestCache(t *testing.T) *IndexCache {
	t.Helper()
	c, err := NewIndexCache(8, 0)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func writeNotebook(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIndexCache_LoadHitsAfterFirstParse(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path, oneFunction)

	first, err := c.Load(path)
	require.NoError(t, err)
	second, err := c.Load(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, []string{"uno"}, second.ListNames())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestIndexCache_ReloadsChangedFile(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path, oneFunction)

	first, err := c.Load(path)
	require.NoError(t, err)

	writeNotebook(t, path, twoFunctions)
	// Size differs, but bump mtime too in case the filesystem is coarse
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	second, err := c.Load(path)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"dos", "uno"}, second.ListNames())
}

func TestIndexCache_MissingNotebook(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	idx, err := c.Load(filepath.Join(t.TempDir(), "missing.ipynb"))

	require.Error(t, err)
	assert.Nil(t, idx)
	assert.ErrorIs(t, err, notebook.ErrNotFound)
	assert.True(t, notebook.IsNotFound(err))
}

func TestIndexCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path, oneFunction)

	first, err := c.Load(path)
	require.NoError(t, err)

	c.Invalidate(path)

	second, err := c.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int64(2), c.Stats().Misses)
}

func TestIndexCache_RelativeAndAbsoluteShareEntry(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Chdir()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	writeNotebook(t, filepath.Join(dir, "nb.ipynb"), oneFunction)
	t.Chdir(dir)

	c := newTestCache(t)

	_, err = c.Load("nb.ipynb")
	require.NoError(t, err)
	_, err = c.Load(filepath.Join(dir, "nb.ipynb"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestNewIndexCache_RejectsBadCapacity(t *testing.T) {
	t.Parallel()

	_, err := NewIndexCache(0, time.Minute)
	assert.Error(t, err)
}

func TestNewIndexCache_WithTTL(t *testing.T) {
	t.Parallel()

	c, err := NewIndexCache(4, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	path := filepath.Join(t.TempDir(), "nb.ipynb")
	writeNotebook(t, path, oneFunction)

	idx, err := c.Load(path)
	require.NoError(t, err)
	assert.True(t, idx.Exists("uno"))
}

package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/notebook-functions/internal/cache"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
)

// Test Plan for Indexer:
// - Reload indexes new notebooks so their functions become searchable
// - Reload after an edit replaces stale documents
// - Reload of a deleted notebook removes it from the index
// - A notebook that cannot be read fails without blocking the others

func newTestIndexer(t *testing.T) (*Indexer, Searcher) {
	t.Helper()

	indexCache, err := cache.NewIndexCache(8, 0)
	require.NoError(t, err)
	t.Cleanup(indexCache.Close)

	searcher, err := NewSearcher()
	require.NoError(t, err)
	t.Cleanup(func() { searcher.Close() })

	return NewIndexer(indexCache, searcher, parsers.NewPythonParser()), searcher
}

func copyFixture(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "notebooks", name))
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestIndexer_ReloadLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	indexer, searcher := newTestIndexer(t)
	path := copyFixture(t, t.TempDir(), "functions.ipynb")

	require.NoError(t, indexer.Reload(ctx, []string{path}))
	assert.Equal(t, []string{path}, searcher.Notebooks())

	results, err := searcher.Search(ctx, "name:saludo", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Document.Notebook)

	// Replace the notebook with one that only defines despedida
	require.NoError(t, os.WriteFile(path, []byte(`{
 "cells": [
  {
   "cell_type": "code",
   "metadata": {},
   "outputs": [],
   "source": [
    "def despedida(nombre):\n",
    "    return \"Adios \" + nombre"
   ]
  }
 ],
 "nbformat": 4
}
`), 0644))

	require.NoError(t, indexer.Reload(ctx, []string{path}))

	results, err = searcher.Search(ctx, "name:saludo", nil)
	require.NoError(t, err)
	assert.Empty(t, results, "stale documents must be dropped")

	results, err = searcher.Search(ctx, "name:despedida", nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	require.NoError(t, os.Remove(path))
	require.NoError(t, indexer.Reload(ctx, []string{path}))
	assert.Empty(t, searcher.Notebooks())
}

func TestIndexer_BrokenNotebookDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	indexer, searcher := newTestIndexer(t)
	dir := t.TempDir()
	good := copyFixture(t, dir, "functions.ipynb")

	// A directory named like a notebook stats fine but cannot be read
	broken := filepath.Join(dir, "broken.ipynb")
	require.NoError(t, os.Mkdir(broken, 0755))

	err := indexer.Reload(context.Background(), []string{broken, good})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
	assert.Equal(t, []string{good}, searcher.Notebooks())
}

func TestIndexer_CanceledContext(t *testing.T) {
	t.Parallel()

	indexer, searcher := newTestIndexer(t)
	path := copyFixture(t, t.TempDir(), "functions.ipynb")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := indexer.Reload(ctx, []string{path})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, searcher.Notebooks())
}

package search

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// NotebookLoader returns the index of a notebook, possibly cached.
type NotebookLoader interface {
	Load(path string) (*notebook.Index, error)
	Invalidate(path string)
}

// Indexer keeps a Searcher in step with notebooks on disk.
// It implements watcher.Reloadable.
type Indexer struct {
	loader   NotebookLoader
	searcher Searcher
	parser   *parsers.PythonParser
}

// NewIndexer creates an indexer writing into searcher.
func NewIndexer(loader NotebookLoader, searcher Searcher, parser *parsers.PythonParser) *Indexer {
	return &Indexer{
		loader:   loader,
		searcher: searcher,
		parser:   parser,
	}
}

// Reload re-reads every changed notebook and replaces its documents.
// Notebooks that no longer exist are removed from the index. One broken
// notebook does not stop the others; all failures are returned together.
func (ix *Indexer) Reload(ctx context.Context, changed []string) error {
	var errs []error

	for _, path := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}

		ix.loader.Invalidate(path)

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := ix.searcher.RemoveNotebook(ctx, path); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
			}
			continue
		}

		if err := ix.index(ctx, path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (ix *Indexer) index(ctx context.Context, path string) error {
	idx, err := ix.loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	docs, err := DocumentsFor(ctx, path, idx, ix.parser)
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", path, err)
	}

	if err := ix.searcher.ReplaceNotebook(ctx, path, docs); err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}
	return nil
}

package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// entry is a parsed notebook together with the file version it came from.
type entry struct {
	fingerprint Fingerprint
	index       *notebook.Index
}

// IndexCache keeps parsed notebooks in memory and reparses a notebook only
// when its size or modification time changes.
type IndexCache struct {
	entries otter.Cache[string, entry]

	mu     sync.Mutex
	hits   int64
	misses int64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewIndexCache creates a cache holding up to capacity notebooks. A positive
// ttl expires entries that long after they were written.
func NewIndexCache(capacity int, ttl time.Duration) (*IndexCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	builder := otter.MustBuilder[string, entry](capacity)

	var (
		entries otter.Cache[string, entry]
		err     error
	)
	if ttl > 0 {
		entries, err = builder.WithTTL(ttl).Build()
	} else {
		entries, err = builder.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build index cache: %w", err)
	}

	return &IndexCache{entries: entries}, nil
}

// Load returns the index for the notebook at path, parsing it only if the
// cached copy is missing or stale. Unreadable notebooks fail with a
// *notebook.NotFoundError.
func (c *IndexCache) Load(path string) (*notebook.Index, error) {
	fp, err := Stat(path)
	if err != nil {
		c.Invalidate(path)
		return nil, &notebook.NotFoundError{Kind: notebook.KindNotebook, Name: path, Err: err}
	}

	if e, ok := c.entries.Get(fp.Path); ok && e.fingerprint.Same(fp) {
		c.record(true)
		return e.index, nil
	}
	c.record(false)

	idx, err := notebook.Open(fp.Path)
	if err != nil {
		return nil, err
	}

	c.entries.Set(fp.Path, entry{fingerprint: fp, index: idx})
	return idx, nil
}

// Invalidate drops any cached index for path.
func (c *IndexCache) Invalidate(path string) {
	if fp, err := Stat(path); err == nil {
		c.entries.Delete(fp.Path)
		return
	}
	// The file may be gone; fall back to the absolute form of path
	if abs, err := filepath.Abs(path); err == nil {
		c.entries.Delete(abs)
	}
}

// Stats returns hit/miss counters and the current number of entries.
func (c *IndexCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.entries.Size(),
	}
}

// Close releases the cache's background resources.
func (c *IndexCache) Close() {
	c.entries.Close()
}

func (c *IndexCache) record(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/notebook-functions/internal/bridge"
	"github.com/mvp-joe/notebook-functions/internal/cache"
	"github.com/mvp-joe/notebook-functions/internal/config"
	"github.com/mvp-joe/notebook-functions/internal/discovery"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/internal/search"
	"github.com/mvp-joe/notebook-functions/internal/watcher"
)

// Server identity reported to MCP clients
const (
	ServerName    = "nbfunc-mcp"
	ServerVersion = "1.0.0"
)

// MCPServer manages the MCP server lifecycle.
type MCPServer struct {
	rootDir  string
	cache    *cache.IndexCache
	searcher search.Searcher
	indexer  *search.Indexer
	watcher  *watcher.Watcher
	mcp      *server.MCPServer
}

// NewMCPServer creates a server for the notebooks under rootDir. Every
// discovered notebook is indexed for search before it returns. A nil
// bridge leaves notebook_exec_function unregistered.
func NewMCPServer(ctx context.Context, cfg *config.Config, rootDir string, b *bridge.Bridge) (*MCPServer, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	nd, err := discovery.New(absRoot, cfg.Paths.Notebooks, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid notebook patterns: %w", err)
	}

	indexCache, err := cache.NewIndexCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}

	searcher, err := search.NewSearcher()
	if err != nil {
		indexCache.Close()
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}

	parser := parsers.NewPythonParser()
	indexer := search.NewIndexer(indexCache, searcher, parser)

	paths, err := nd.Discover()
	if err != nil {
		searcher.Close()
		indexCache.Close()
		return nil, fmt.Errorf("failed to discover notebooks: %w", err)
	}
	if err := indexer.Reload(ctx, paths); err != nil {
		// Broken notebooks stay out of the index until they change
		log.Printf("Warning: some notebooks could not be indexed: %v", err)
	}
	log.Printf("Indexed %d notebook(s) under %s", len(searcher.Notebooks()), absRoot)

	w, err := watcher.NewDirWatcher(cfg.Watch.Debounce, []string{absRoot}, nd.Matches, nd.IgnoresDir)
	if err != nil {
		searcher.Close()
		indexCache.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	AddNotebookTools(mcpServer, &Tools{
		RootDir:      absRoot,
		Loader:       indexCache,
		Parser:       parser,
		Searcher:     searcher,
		Bridge:       b,
		DefaultLimit: cfg.Search.DefaultLimit,
	})

	return &MCPServer{
		rootDir:  absRoot,
		cache:    indexCache,
		searcher: searcher,
		indexer:  indexer,
		watcher:  w,
		mcp:      mcpServer,
	}, nil
}

// Serve starts the MCP server and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Keep the search index current while serving
	s.watcher.Start(ctx, watcher.ReloadOnChange(ctx, s.indexer))
	defer s.watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources. The bridge belongs to the caller.
func (s *MCPServer) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.searcher != nil {
		return s.searcher.Close()
	}
	return nil
}

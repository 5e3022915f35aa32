package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/cache"
	"github.com/mvp-joe/notebook-functions/internal/config"
	"github.com/mvp-joe/notebook-functions/internal/discovery"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/internal/search"
)

var (
	searchDirFlag   string
	searchLimitFlag int
	searchJSONFlag  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the functions of every notebook in a directory",
	Long: `Search indexes the functions of every notebook found under --dir and runs a
query against their names, signatures, docstrings and bodies.

Queries use bleve query string syntax: field scoping (name:, docstring:,
body:, signature:), +required and -excluded terms, "phrases", wildcards
and ~fuzzy terms.

Examples:
  nbfunc search factorial
  nbfunc search 'docstring:suma' --dir notebooks
  nbfunc search 'name:load_*' --limit 5 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(searchDirFlag)
		if err != nil {
			return err
		}
		limit := searchLimitFlag
		if !cmd.Flags().Changed("limit") {
			limit = cfg.Search.DefaultLimit
		}
		return runSearch(cmd.Context(), cmd.OutOrStdout(), cfg, searchDirFlag, strings.Join(args, " "), limit, searchJSONFlag)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchDirFlag, "dir", ".", "directory to search for notebooks")
	searchCmd.Flags().IntVar(&searchLimitFlag, "limit", search.DefaultLimit,
		fmt.Sprintf("maximum number of results (1-%d)", search.MaxLimit))
	searchCmd.Flags().BoolVar(&searchJSONFlag, "json", false, "print JSON")
	rootCmd.AddCommand(searchCmd)
}

// buildSearchIndex indexes every notebook under dir. Notebooks that fail
// to load are reported and left out.
func buildSearchIndex(ctx context.Context, cfg *config.Config, dir string) (search.Searcher, error) {
	nd, err := discovery.New(dir, cfg.Paths.Notebooks, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid notebook patterns: %w", err)
	}
	paths, err := nd.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover notebooks: %w", err)
	}

	indexCache, err := cache.NewIndexCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return nil, err
	}
	defer indexCache.Close()

	searcher, err := search.NewSearcher()
	if err != nil {
		return nil, err
	}

	indexer := search.NewIndexer(indexCache, searcher, parsers.NewPythonParser())
	if err := indexer.Reload(ctx, paths); err != nil {
		if ctx.Err() != nil {
			searcher.Close()
			return nil, err
		}
		log.Printf("Warning: %v", err)
	}
	return searcher, nil
}

func runSearch(ctx context.Context, w io.Writer, cfg *config.Config, dir, query string, limit int, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	searcher, err := buildSearchIndex(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer searcher.Close()

	results, err := searcher.Search(ctx, query, &search.Options{Limit: limit})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No matches")
		return nil
	}
	for _, r := range results {
		doc := r.Document
		rel, err := filepath.Rel(dir, doc.Notebook)
		if err != nil {
			rel = doc.Notebook
		}
		signature := doc.Signature
		if signature == "" {
			signature = doc.Name
		}
		fmt.Fprintf(w, "%s:%d  %s  (score %.2f)\n", rel, doc.Line, signature, r.Score)
	}
	return nil
}

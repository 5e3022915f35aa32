package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/notebook-functions/internal/config"
	"github.com/mvp-joe/notebook-functions/internal/discovery"
	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/internal/storage"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

var (
	catalogDirFlag   string
	catalogQuietFlag bool
	catalogAllFlag   bool
	catalogJSONFlag  bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Record every notebook's functions in a SQLite catalog",
	Long: `Catalog discovers the notebooks under --dir and stores their functions,
signatures, docstrings and imports in a SQLite database (by default
.nbfunc/catalog.db, see storage.catalog_path).

Notebooks whose content has not changed since the last run are skipped and
notebooks that no longer exist are removed.

Examples:
  nbfunc catalog
  nbfunc catalog --dir notebooks --quiet
  nbfunc catalog find suma
  nbfunc catalog list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(catalogDirFlag)
		if err != nil {
			return err
		}
		_, err = runCatalog(cmd.Context(), cmd.OutOrStdout(), cfg, catalogDirFlag, catalogQuietFlag)
		return err
	},
}

var catalogFindCmd = &cobra.Command{
	Use:   "find <function>",
	Short: "Find the notebooks that define a function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCatalog(catalogDirFlag)
		if err != nil {
			return err
		}
		defer db.Close()
		return runCatalogFind(cmd.OutOrStdout(), storage.NewReader(db), args[0], catalogAllFlag, catalogJSONFlag)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cataloged notebooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCatalog(catalogDirFlag)
		if err != nil {
			return err
		}
		defer db.Close()
		return runCatalogList(cmd.OutOrStdout(), storage.NewReader(db))
	},
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogDirFlag, "dir", ".", "project directory")
	catalogCmd.Flags().BoolVarP(&catalogQuietFlag, "quiet", "q", false, "suppress progress output")
	catalogFindCmd.Flags().BoolVar(&catalogAllFlag, "all", false, "include definitions later overridden in the same notebook")
	catalogFindCmd.Flags().BoolVar(&catalogJSONFlag, "json", false, "print JSON")

	catalogCmd.AddCommand(catalogFindCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

// CatalogSummary counts what a catalog run did.
type CatalogSummary struct {
	Notebooks int // discovered
	Functions int // definitions in discovered notebooks
	Updated   int
	Unchanged int
	Pruned    int
	Failed    int
}

func openCatalog(dir string) (*sql.DB, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	return storage.OpenReadOnly(cfg.CatalogPath(dir))
}

func runCatalog(ctx context.Context, w io.Writer, cfg *config.Config, dir string, quiet bool) (*CatalogSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	nd, err := discovery.New(absDir, cfg.Paths.Notebooks, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("invalid notebook patterns: %w", err)
	}
	paths, err := nd.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover notebooks: %w", err)
	}

	db, err := storage.Open(cfg.CatalogPath(absDir))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	writer := storage.NewWriter(db)
	parser := parsers.NewPythonParser()
	progress := newCatalogProgress(w, quiet)
	summary := &CatalogSummary{Notebooks: len(paths)}

	progress.OnDiscoveryComplete(len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := catalogRecord(ctx, parser, path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			summary.Failed++
			progress.OnNotebookProcessed()
			continue
		}
		summary.Functions += len(rec.Functions)

		written, err := writer.WriteNotebook(rec)
		if err != nil {
			return nil, err
		}
		if written {
			summary.Updated++
		} else {
			summary.Unchanged++
		}
		progress.OnNotebookProcessed()
	}

	if summary.Pruned, err = writer.Prune(paths); err != nil {
		return nil, err
	}

	progress.OnComplete(summary)
	return summary, nil
}

// catalogRecord reads one notebook and describes each of its definitions.
func catalogRecord(ctx context.Context, parser *parsers.PythonParser, path string) (*storage.NotebookRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	idx := notebook.Parse(string(data))
	for _, d := range idx.Diagnostics() {
		log.Printf("Warning: %s: %v", path, d)
	}

	rec := storage.NewNotebookRecord(path, data, info, idx)
	for _, fn := range rec.Functions {
		desc, err := parser.Describe(ctx, fn.Body)
		if err != nil {
			continue
		}
		fn.Signature = desc.Signature
		fn.Docstring = desc.Docstring
	}
	return rec, nil
}

func runCatalogFind(w io.Writer, reader *storage.Reader, name string, all, asJSON bool) error {
	functions, err := reader.FindFunctions(name, !all)
	if err != nil {
		return err
	}

	if asJSON {
		if functions == nil {
			functions = []*storage.FunctionRow{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(functions)
	}

	if len(functions) == 0 {
		return &notebook.NotFoundError{Kind: notebook.KindFunction, Name: name}
	}
	for _, fn := range functions {
		signature := fn.Signature
		if signature == "" {
			signature = fn.Name
		}
		fmt.Fprintf(w, "%s:%d  %s\n", fn.Notebook, fn.Line, signature)
	}
	return nil
}

func runCatalogList(w io.Writer, reader *storage.Reader) error {
	notebooks, err := reader.ListNotebooks()
	if err != nil {
		return err
	}

	for _, nb := range notebooks {
		fmt.Fprintf(w, "%s  %d function(s)  %d cell(s)  indexed %s\n",
			nb.Path, nb.FunctionCount, nb.CellCount, nb.IndexedAt.Format("2006-01-02 15:04"))
	}

	stats, err := reader.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s notebooks, %s functions, %s distinct names\n",
		formatNumber(stats.Notebooks), formatNumber(stats.Functions), formatNumber(stats.Names))
	return nil
}

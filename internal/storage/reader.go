package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Reader handles reading the notebook catalog from SQLite.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader instance.
// DB should have schema already created.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// CatalogStats summarizes the catalog.
type CatalogStats struct {
	Notebooks int
	Functions int
	Names     int // distinct function names
	Imports   int // distinct import statements
}

var notebookColumns = []string{
	"n.notebook_id", "n.path", "n.content_hash", "n.size_bytes", "n.cell_count",
	"n.diagnostic_count", "n.last_modified", "n.indexed_at",
	"(SELECT COUNT(*) FROM functions f WHERE f.notebook_id = n.notebook_id)",
}

var functionColumns = []string{
	"f.function_id", "n.path", "f.name", "f.ordinal", "f.cell", "f.line",
	"f.body", "f.signature", "f.docstring", "f.is_authoritative",
}

// GetNotebook retrieves one notebook by path.
// Returns (nil, nil) if the notebook is not in the catalog.
func (r *Reader) GetNotebook(path string) (*NotebookRow, error) {
	row := sq.Select(notebookColumns...).
		From("notebooks n").
		Where(sq.Eq{"n.path": path}).
		RunWith(r.db).
		QueryRow()

	nb, err := scanNotebook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notebook %s: %w", path, err)
	}
	return nb, nil
}

// ListNotebooks retrieves every cataloged notebook ordered by path.
func (r *Reader) ListNotebooks() ([]*NotebookRow, error) {
	rows, err := sq.Select(notebookColumns...).
		From("notebooks n").
		OrderBy("n.path").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query notebooks: %w", err)
	}
	defer rows.Close()

	var notebooks []*NotebookRow
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notebook: %w", err)
		}
		notebooks = append(notebooks, nb)
	}
	return notebooks, rows.Err()
}

// FindFunctions returns every definition named name across notebooks,
// ordered by notebook path and definition order. With authoritativeOnly
// only the last definition per notebook is returned.
func (r *Reader) FindFunctions(name string, authoritativeOnly bool) ([]*FunctionRow, error) {
	where := sq.And{sq.Eq{"f.name": name}}
	if authoritativeOnly {
		where = append(where, sq.Eq{"f.is_authoritative": true})
	}
	return r.queryFunctions(where)
}

// NotebookFunctions returns every definition of one notebook in order.
func (r *Reader) NotebookFunctions(path string) ([]*FunctionRow, error) {
	return r.queryFunctions(sq.Eq{"n.path": path})
}

// SearchNames returns authoritative definitions whose name matches a SQL
// LIKE pattern.
func (r *Reader) SearchNames(pattern string) ([]*FunctionRow, error) {
	return r.queryFunctions(sq.And{
		sq.Like{"f.name": pattern},
		sq.Eq{"f.is_authoritative": true},
	})
}

func (r *Reader) queryFunctions(where sq.Sqlizer) ([]*FunctionRow, error) {
	rows, err := sq.Select(functionColumns...).
		From("functions f").
		Join("notebooks n ON n.notebook_id = f.notebook_id").
		Where(where).
		OrderBy("n.path", "f.ordinal").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query functions: %w", err)
	}
	defer rows.Close()

	var functions []*FunctionRow
	for rows.Next() {
		fn := &FunctionRow{}
		if err := rows.Scan(
			&fn.ID, &fn.Notebook, &fn.Name, &fn.Ordinal, &fn.Cell, &fn.Line,
			&fn.Body, &fn.Signature, &fn.Docstring, &fn.IsAuthoritative,
		); err != nil {
			return nil, fmt.Errorf("failed to scan function: %w", err)
		}
		functions = append(functions, fn)
	}
	return functions, rows.Err()
}

// Imports returns the import statements of one notebook, sorted.
func (r *Reader) Imports(path string) ([]string, error) {
	rows, err := sq.Select("i.statement").
		From("imports i").
		Join("notebooks n ON n.notebook_id = i.notebook_id").
		Where(sq.Eq{"n.path": path}).
		OrderBy("i.statement").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query imports for %s: %w", path, err)
	}
	defer rows.Close()

	var imports []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, stmt)
	}
	return imports, rows.Err()
}

// Stats counts catalog contents.
func (r *Reader) Stats() (*CatalogStats, error) {
	stats := &CatalogStats{}

	counts := []struct {
		dest  *int
		query sq.SelectBuilder
	}{
		{&stats.Notebooks, sq.Select("COUNT(*)").From("notebooks")},
		{&stats.Functions, sq.Select("COUNT(*)").From("functions")},
		{&stats.Names, sq.Select("COUNT(DISTINCT name)").From("functions")},
		{&stats.Imports, sq.Select("COUNT(DISTINCT statement)").From("imports")},
	}

	for _, c := range counts {
		if err := c.query.RunWith(r.db).QueryRow().Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count catalog rows: %w", err)
		}
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotebook(row rowScanner) (*NotebookRow, error) {
	nb := &NotebookRow{}
	var lastModified, indexedAt string

	if err := row.Scan(
		&nb.ID, &nb.Path, &nb.ContentHash, &nb.SizeBytes, &nb.CellCount,
		&nb.DiagnosticCount, &lastModified, &indexedAt, &nb.FunctionCount,
	); err != nil {
		return nil, err
	}

	nb.LastModified, _ = time.Parse(time.RFC3339, lastModified)
	nb.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return nb, nil
}

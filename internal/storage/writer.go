package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Writer handles writing notebook catalog rows to SQLite.
type Writer struct {
	db *sql.DB
}

// NewWriter creates a Writer instance.
// DB must have schema already created via CreateSchema().
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// WriteNotebook replaces every row of one notebook in a single transaction.
// When the stored content hash equals rec.ContentHash nothing is written and
// false is returned.
func (w *Writer) WriteNotebook(rec *NotebookRecord) (bool, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	var storedHash string
	err = sq.Select("content_hash").
		From("notebooks").
		Where(sq.Eq{"path": rec.Path}).
		RunWith(tx).
		QueryRow().
		Scan(&storedHash)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return false, fmt.Errorf("failed to read notebook %s: %w", rec.Path, err)
	case storedHash == rec.ContentHash:
		return false, nil
	}

	// Cascades to functions and imports
	if _, err := sq.Delete("notebooks").Where(sq.Eq{"path": rec.Path}).RunWith(tx).Exec(); err != nil {
		return false, fmt.Errorf("failed to delete notebook %s: %w", rec.Path, err)
	}

	notebookID := uuid.New().String()
	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	_, err = sq.Insert("notebooks").
		Columns("notebook_id", "path", "content_hash", "size_bytes", "cell_count", "diagnostic_count", "last_modified", "indexed_at").
		Values(
			notebookID,
			rec.Path,
			rec.ContentHash,
			rec.SizeBytes,
			rec.CellCount,
			rec.DiagnosticCount,
			rec.LastModified.UTC().Format(time.RFC3339),
			indexedAt.UTC().Format(time.RFC3339),
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return false, fmt.Errorf("failed to insert notebook %s: %w", rec.Path, err)
	}

	for _, fn := range rec.Functions {
		fn.ID = uuid.New().String()
		fn.Notebook = rec.Path
		_, err := sq.Insert("functions").
			Columns("function_id", "notebook_id", "name", "ordinal", "cell", "line", "body", "signature", "docstring", "is_authoritative").
			Values(fn.ID, notebookID, fn.Name, fn.Ordinal, fn.Cell, fn.Line, fn.Body, fn.Signature, fn.Docstring, fn.IsAuthoritative).
			RunWith(tx).
			Exec()
		if err != nil {
			return false, fmt.Errorf("failed to insert function %s: %w", fn.Name, err)
		}
	}

	for _, stmt := range rec.Imports {
		_, err := sq.Insert("imports").
			Columns("notebook_id", "statement").
			Values(notebookID, stmt).
			Options("OR IGNORE").
			RunWith(tx).
			Exec()
		if err != nil {
			return false, fmt.Errorf("failed to insert import %q: %w", stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit notebook %s: %w", rec.Path, err)
	}

	return true, nil
}

// DeleteNotebook removes a notebook and all of its rows.
func (w *Writer) DeleteNotebook(path string) error {
	_, err := sq.Delete("notebooks").
		Where(sq.Eq{"path": path}).
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete notebook %s: %w", path, err)
	}
	return nil
}

// Prune removes every notebook whose path is not in keep and returns how
// many were removed.
func (w *Writer) Prune(keep []string) (int, error) {
	query := sq.Delete("notebooks")
	if len(keep) > 0 {
		query = query.Where(sq.NotEq{"path": keep})
	}

	res, err := query.RunWith(w.db).Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to prune notebooks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned notebooks: %w", err)
	}
	return int(n), nil
}

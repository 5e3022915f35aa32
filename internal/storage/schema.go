package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to catalog_metadata on creation.
const SchemaVersion = "1"

// CreateSchema creates all catalog tables and indexes in one transaction.
// It is idempotent: existing tables are left alone.
//
// Must be called with SQLite PRAGMA foreign_keys = ON so that deleting a
// notebook cascades to its functions and imports.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"notebooks", createNotebooksTable},
		{"functions", createFunctionsTable},
		{"imports", createImportsTable},
		{"catalog_metadata", createCatalogMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO catalog_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap catalog_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from catalog_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='catalog_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check catalog_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM catalog_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in catalog_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createNotebooksTable = `
CREATE TABLE IF NOT EXISTS notebooks (
    notebook_id TEXT PRIMARY KEY,                -- UUID, regenerated on every rewrite
    path TEXT NOT NULL UNIQUE,                   -- Absolute notebook path
    content_hash TEXT NOT NULL,                  -- SHA-256 for change detection
    size_bytes INTEGER NOT NULL DEFAULT 0,
    cell_count INTEGER NOT NULL DEFAULT 0,       -- Code cells only
    diagnostic_count INTEGER NOT NULL DEFAULT 0, -- Malformed cells skipped
    last_modified TEXT NOT NULL,                 -- ISO 8601 mtime from filesystem
    indexed_at TEXT NOT NULL
)
`

const createFunctionsTable = `
CREATE TABLE IF NOT EXISTS functions (
    function_id TEXT PRIMARY KEY,                -- UUID
    notebook_id TEXT NOT NULL,
    name TEXT NOT NULL,
    ordinal INTEGER NOT NULL,                    -- Position among all definitions
    cell INTEGER NOT NULL,                       -- Code cell ordinal
    line INTEGER NOT NULL,                       -- 0-based header line in the file
    body TEXT NOT NULL,
    signature TEXT NOT NULL DEFAULT '',
    docstring TEXT NOT NULL DEFAULT '',
    is_authoritative INTEGER NOT NULL DEFAULT 0, -- Boolean: last definition of name
    FOREIGN KEY (notebook_id) REFERENCES notebooks(notebook_id) ON DELETE CASCADE
)
`

const createImportsTable = `
CREATE TABLE IF NOT EXISTS imports (
    notebook_id TEXT NOT NULL,
    statement TEXT NOT NULL,
    PRIMARY KEY (notebook_id, statement),
    FOREIGN KEY (notebook_id) REFERENCES notebooks(notebook_id) ON DELETE CASCADE
)
`

const createCatalogMetadataTable = `
CREATE TABLE IF NOT EXISTS catalog_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_functions_notebook ON functions(notebook_id)",
	"CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name)",
	"CREATE INDEX IF NOT EXISTS idx_functions_authoritative ON functions(name, is_authoritative)",
}

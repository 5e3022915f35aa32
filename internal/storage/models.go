package storage

import (
	"os"
	"time"

	"github.com/mvp-joe/notebook-functions/internal/cache"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// NotebookRecord is everything the catalog stores for one notebook.
type NotebookRecord struct {
	Path            string
	ContentHash     string // SHA-256
	SizeBytes       int64
	CellCount       int
	DiagnosticCount int
	LastModified    time.Time
	IndexedAt       time.Time
	Functions       []*FunctionRow
	Imports         []string
}

// NotebookRow is a notebooks table row.
type NotebookRow struct {
	ID              string
	Path            string
	ContentHash     string
	SizeBytes       int64
	CellCount       int
	DiagnosticCount int
	FunctionCount   int
	LastModified    time.Time
	IndexedAt       time.Time
}

// FunctionRow is a functions table row.
type FunctionRow struct {
	ID              string `json:"id"`
	Notebook        string `json:"notebook"` // notebook path
	Name            string `json:"name"`
	Ordinal         int    `json:"ordinal"`
	Cell            int    `json:"cell"`
	Line            int    `json:"line"`
	Body            string `json:"body"`
	Signature       string `json:"signature,omitempty"`
	Docstring       string `json:"docstring,omitempty"`
	IsAuthoritative bool   `json:"is_authoritative"`
}

// NewNotebookRecord builds the catalog record of an indexed notebook.
// Signatures and docstrings are left for the caller to fill in.
func NewNotebookRecord(path string, data []byte, info os.FileInfo, idx *notebook.Index) *NotebookRecord {
	records := idx.Records()

	// The last definition of each name is authoritative
	last := make(map[string]int, len(records))
	for i, rec := range records {
		last[rec.Name] = i
	}

	functions := make([]*FunctionRow, len(records))
	for i, rec := range records {
		functions[i] = &FunctionRow{
			Notebook:        path,
			Name:            rec.Name,
			Ordinal:         i,
			Cell:            rec.Cell,
			Line:            rec.Line,
			Body:            rec.Body,
			IsAuthoritative: last[rec.Name] == i,
		}
	}

	return &NotebookRecord{
		Path:            path,
		ContentHash:     cache.ContentHash(data),
		SizeBytes:       info.Size(),
		CellCount:       idx.CellCount(),
		DiagnosticCount: len(idx.Diagnostics()),
		LastModified:    info.ModTime(),
		IndexedAt:       time.Now(),
		Functions:       functions,
		Imports:         idx.ListImports(),
	}
}

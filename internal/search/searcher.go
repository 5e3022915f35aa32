package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// Search limits
const (
	DefaultLimit = 15
	MaxLimit     = 100
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query is empty")

// Document is one searchable notebook function.
type Document struct {
	ID        string `json:"id"`
	Notebook  string `json:"notebook"`
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Docstring string `json:"docstring,omitempty"`
	Body      string `json:"body"`
	Cell      int    `json:"cell"`
	Line      int    `json:"line"`
}

// Result is a single search hit with highlighting.
type Result struct {
	Document   *Document `json:"document"`
	Score      float64   `json:"score"`
	Highlights []string  `json:"highlights,omitempty"` // Matching snippets with <em> tags
}

// Options narrows a search. A nil Options uses the defaults.
type Options struct {
	Limit    int
	Notebook string // exact notebook path
}

// Searcher is a full-text index over notebook functions.
type Searcher interface {
	// Search executes a query using bleve query string syntax
	// (field scoping, boolean operators, phrases, wildcards, fuzzy).
	Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error)

	// ReplaceNotebook swaps every document of one notebook for docs.
	ReplaceNotebook(ctx context.Context, path string, docs []*Document) error

	// RemoveNotebook drops every document of one notebook.
	RemoveNotebook(ctx context.Context, path string) error

	// Notebooks lists the indexed notebook paths.
	Notebooks() []string

	Close() error
}

// searcher implements Searcher with an in-memory bleve index.
type searcher struct {
	index bleve.Index
	mu    sync.RWMutex // Protects index and docIDs

	docIDs map[string][]string // notebook -> [document ids]
}

// NewSearcher creates an empty in-memory searcher.
func NewSearcher() (Searcher, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &searcher{
		index:  index,
		docIDs: make(map[string][]string),
	}, nil
}

// buildMapping creates the index mapping for function documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Source text - standard analyzer with term vectors for phrases
	bodyMapping := bleve.NewTextFieldMapping()
	bodyMapping.Analyzer = "standard"
	bodyMapping.Store = true
	bodyMapping.IncludeTermVectors = true

	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true

	// Notebook path - keyword for exact filtering
	keywordMapping := bleve.NewTextFieldMapping()
	keywordMapping.Analyzer = "keyword"
	keywordMapping.Store = true

	// ID - stored, not indexed
	idMapping := bleve.NewTextFieldMapping()
	idMapping.Analyzer = "keyword"
	idMapping.Store = true
	idMapping.Index = false

	numberMapping := bleve.NewNumericFieldMapping()
	numberMapping.Store = true
	numberMapping.Index = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", idMapping)
	docMapping.AddFieldMappingsAt("notebook", keywordMapping)
	docMapping.AddFieldMappingsAt("name", textMapping)
	docMapping.AddFieldMappingsAt("signature", textMapping)
	docMapping.AddFieldMappingsAt("docstring", textMapping)
	docMapping.AddFieldMappingsAt("body", bodyMapping)
	docMapping.AddFieldMappingsAt("cell", numberMapping)
	docMapping.AddFieldMappingsAt("line", numberMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func toFields(doc *Document) map[string]interface{} {
	return map[string]interface{}{
		"id":        doc.ID,
		"notebook":  doc.Notebook,
		"name":      doc.Name,
		"signature": doc.Signature,
		"docstring": doc.Docstring,
		"body":      doc.Body,
		"cell":      float64(doc.Cell),
		"line":      float64(doc.Line),
	}
}

// ReplaceNotebook deletes the notebook's previous documents and indexes docs
// in one batch.
func (s *searcher) ReplaceNotebook(ctx context.Context, path string, docs []*Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, id := range s.docIDs[path] {
		batch.Delete(id)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := batch.Index(doc.ID, toFields(doc)); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", doc.ID, err)
		}
		ids = append(ids, doc.ID)
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	if len(ids) == 0 {
		delete(s.docIDs, path)
	} else {
		s.docIDs[path] = ids
	}
	return nil
}

// RemoveNotebook drops every document of one notebook.
func (s *searcher) RemoveNotebook(ctx context.Context, path string) error {
	return s.ReplaceNotebook(ctx, path, nil)
}

// Notebooks lists the indexed notebook paths, sorted.
func (s *searcher) Notebooks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.docIDs))
	for path := range s.docIDs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Search executes a query using bleve QueryStringQuery syntax.
func (s *searcher) Search(ctx context.Context, queryStr string, options *Options) ([]*Result, error) {
	if queryStr == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if options == nil {
		options = &Options{}
	}

	limit := options.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	var finalQuery query.Query = bleve.NewQueryStringQuery(queryStr)
	if options.Notebook != "" {
		nbQuery := bleve.NewTermQuery(options.Notebook)
		nbQuery.SetField("notebook")
		finalQuery = bleve.NewConjunctionQuery(finalQuery, nbQuery)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	highlightStyle := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &highlightStyle
	req.Highlight.Fields = []string{"body", "docstring"}
	req.Fields = []string{"id", "notebook", "name", "signature", "docstring", "body", "cell", "line"}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc := &Document{ID: hit.ID}
		doc.Notebook, _ = hit.Fields["notebook"].(string)
		doc.Name, _ = hit.Fields["name"].(string)
		doc.Signature, _ = hit.Fields["signature"].(string)
		doc.Docstring, _ = hit.Fields["docstring"].(string)
		doc.Body, _ = hit.Fields["body"].(string)
		if cell, ok := hit.Fields["cell"].(float64); ok {
			doc.Cell = int(cell)
		}
		if line, ok := hit.Fields["line"].(float64); ok {
			doc.Line = int(line)
		}

		results = append(results, &Result{
			Document:   doc,
			Score:      hit.Score,
			Highlights: extractHighlights(hit.Fragments),
		})
	}

	return results, nil
}

// extractHighlights flattens bleve fragments, limited to 3 per result.
func extractHighlights(fragments map[string][]string) []string {
	var highlights []string

	fields := make([]string, 0, len(fragments))
	for field := range fragments {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		highlights = append(highlights, fragments[field]...)
	}

	if len(highlights) > 3 {
		highlights = highlights[:3]
	}
	return highlights
}

// Close releases resources held by the searcher.
func (s *searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// DocumentsFor builds one document per function name of idx, from its
// authoritative definition. Signatures and docstrings come from parser;
// a body the parser cannot describe is still indexed by name and text.
func DocumentsFor(ctx context.Context, path string, idx *notebook.Index, parser *parsers.PythonParser) ([]*Document, error) {
	names := idx.ListNames()
	docs := make([]*Document, 0, len(names))

	for _, name := range names {
		rec, err := idx.Authoritative(name)
		if err != nil {
			return nil, err
		}

		doc := &Document{
			ID:       path + "#" + name,
			Notebook: path,
			Name:     name,
			Body:     rec.Body,
			Cell:     rec.Cell,
			Line:     rec.Line,
		}

		info, err := parser.Describe(ctx, rec.Body)
		switch {
		case err == nil:
			doc.Signature = info.Signature
			doc.Docstring = info.Docstring
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

package notebook

import (
	"io"
	"os"
	"sort"
	"strings"
)

// Index holds every function record and import statement extracted from one
// notebook. It is built once and never mutated, so concurrent readers need
// no locking.
type Index struct {
	path        string
	records     []FunctionRecord
	imports     map[string]struct{}
	cells       int
	diagnostics []*MalformedCellError
}

// Open reads and indexes the notebook at path. A read failure is reported
// as a *NotFoundError. A notebook without code cells yields an empty index.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &NotFoundError{Kind: KindNotebook, Name: path, Err: err}
	}
	defer f.Close()

	idx, err := FromReader(f)
	if err != nil {
		return nil, &NotFoundError{Kind: KindNotebook, Name: path, Err: err}
	}
	idx.path = path
	return idx, nil
}

// FromReader reads the whole notebook from r and indexes it.
func FromReader(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Parse indexes notebook text that is already in memory.
func Parse(text string) *Index {
	return build(splitLines(text))
}

// build runs the scanner and extractor over every code cell.
func build(lines []string) *Index {
	idx := &Index{
		imports: make(map[string]struct{}),
	}

	ranges, malformed := scanCells(lines)
	idx.diagnostics = malformed
	idx.cells = len(ranges)

	for cell, r := range ranges {
		decoded := make([]string, 0, r.Len())
		for i := r.Start; i <= r.End; i++ {
			// The array open/close lines carry no source
			if i == r.Start || i == r.End {
				decoded = append(decoded, "")
				continue
			}
			decoded = append(decoded, DecodeLine(lines[i]))
		}

		seg := Extract(decoded)
		for _, imp := range seg.Imports {
			idx.imports[imp] = struct{}{}
		}
		for _, rec := range seg.Functions {
			rec.Cell = cell
			rec.Line += r.Start
			idx.records = append(idx.records, rec)
		}
	}

	return idx
}

// splitLines splits text on LF and drops a CR before each LF. A final empty
// line after a trailing newline is not returned.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Path returns the file the index was opened from, or "" for Parse/FromReader.
func (idx *Index) Path() string {
	return idx.path
}

// CellCount returns the number of code cells that were extracted.
func (idx *Index) CellCount() int {
	return idx.cells
}

// Exists reports whether any function record has the given name.
func (idx *Index) Exists(name string) bool {
	_, ok := idx.last(name)
	return ok
}

// ListNames returns the distinct function names. Callers must not depend on
// the order; it is currently sorted.
func (idx *Index) ListNames() []string {
	seen := make(map[string]struct{}, len(idx.records))
	names := make([]string, 0, len(idx.records))
	for _, rec := range idx.records {
		if _, ok := seen[rec.Name]; ok {
			continue
		}
		seen[rec.Name] = struct{}{}
		names = append(names, rec.Name)
	}
	sort.Strings(names)
	return names
}

// ListImports returns the distinct import statements, newline terminated.
// Callers must not depend on the order; it is currently sorted.
func (idx *Index) ListImports() []string {
	imports := make([]string, 0, len(idx.imports))
	for imp := range idx.imports {
		imports = append(imports, imp)
	}
	sort.Strings(imports)
	return imports
}

// Records returns a copy of every function record in document order,
// including redefinitions.
func (idx *Index) Records() []FunctionRecord {
	out := make([]FunctionRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Definitions returns the records named name in document order.
func (idx *Index) Definitions(name string) []FunctionRecord {
	var out []FunctionRecord
	for _, rec := range idx.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out
}

// Authoritative returns the last record named name, which is the definition
// left in effect after every record is executed in order.
func (idx *Index) Authoritative(name string) (FunctionRecord, error) {
	rec, ok := idx.last(name)
	if !ok {
		return FunctionRecord{}, &NotFoundError{Kind: KindFunction, Name: name}
	}
	return rec, nil
}

// ImportSource concatenates every import statement.
func (idx *Index) ImportSource() string {
	return strings.Join(idx.ListImports(), "")
}

// SourceFor returns all import statements followed by every function body
// in document order. Executing it leaves the last definition of each name in
// effect, including the requested one.
func (idx *Index) SourceFor(name string) (string, error) {
	if !idx.Exists(name) {
		return "", &NotFoundError{Kind: KindFunction, Name: name}
	}

	var b strings.Builder
	b.WriteString(idx.ImportSource())
	for _, rec := range idx.records {
		b.WriteString(rec.Body)
	}
	return b.String(), nil
}

// BodyFor returns the body of the authoritative definition of name.
func (idx *Index) BodyFor(name string) (string, error) {
	rec, err := idx.Authoritative(name)
	if err != nil {
		return "", err
	}
	return rec.Body, nil
}

// Diagnostics returns the code cells that were skipped because their source
// array could not be delimited.
func (idx *Index) Diagnostics() []*MalformedCellError {
	return idx.diagnostics
}

func (idx *Index) last(name string) (FunctionRecord, bool) {
	for i := len(idx.records) - 1; i >= 0; i-- {
		if idx.records[i].Name == name {
			return idx.records[i], true
		}
	}
	return FunctionRecord{}, false
}

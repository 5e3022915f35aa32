package notebook

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FunctionRecord is one top-level function definition found in a code cell.
type FunctionRecord struct {
	Name string // identifier captured from the header line
	Body string // header plus every indented, blank or comment line after it, each newline terminated
	Cell int    // zero-based ordinal of the code cell among all code cells
	Line int    // zero-based line of the header within the raw document
}

// Segments is what the extractor finds in one code cell.
type Segments struct {
	// Imports holds column-zero import lines in cell order, each newline
	// terminated. Duplicates inside one cell are kept; the index dedupes.
	Imports []string

	// Functions holds one record per header, in cell order. Cell and Line
	// are left for the caller; Line is relative to the first decoded line.
	Functions []FunctionRecord
}

// extractState tracks whether the extractor is inside a function body.
type extractState int

const (
	outsideBody extractState = iota
	insideBody
)

// Extract splits the decoded lines of one code cell into imports and
// function records.
//
// A body starts at a column-zero `def name(` header and absorbs every
// following line that is empty or begins with a space, tab or '#'. The first
// line that does not continue the body closes it and is examined again as a
// possible import or header.
func Extract(decoded []string) Segments {
	var (
		seg     Segments
		state   = outsideBody
		current *FunctionRecord
		body    strings.Builder
	)

	closeBody := func() {
		current.Body = body.String()
		seg.Functions = append(seg.Functions, *current)
		current = nil
		body.Reset()
		state = outsideBody
	}

	for i := 0; i < len(decoded); i++ {
		line := decoded[i]

		if state == insideBody {
			if continuesBody(line) {
				body.WriteString(line)
				body.WriteByte('\n')
				continue
			}
			closeBody()
		}

		if isImport(line) {
			seg.Imports = append(seg.Imports, line+"\n")
			continue
		}

		if name, ok := headerName(line); ok {
			current = &FunctionRecord{Name: name, Line: i}
			body.WriteString(line)
			body.WriteByte('\n')
			state = insideBody
		}
	}

	if state == insideBody {
		closeBody()
	}

	return seg
}

// continuesBody reports whether line belongs to an open function body.
// Indentation width and tab/space mixing are not checked.
func continuesBody(line string) bool {
	if line == "" {
		return true
	}
	switch line[0] {
	case ' ', '\t', '#':
		return true
	}
	return false
}

// isImport reports whether line is a column-zero import statement.
func isImport(line string) bool {
	return keywordThenSpace(line, "import") || keywordThenSpace(line, "from")
}

// headerName returns the function name if line is a column-zero
// `def <identifier> (` header.
func headerName(line string) (string, bool) {
	if !keywordThenSpace(line, "def") {
		return "", false
	}

	rest := strings.TrimLeftFunc(line[len("def"):], unicode.IsSpace)

	end := 0
	for end < len(rest) {
		r, size := utf8.DecodeRuneInString(rest[end:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	if end == 0 {
		return "", false
	}

	name := rest[:end]
	after := strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	if !strings.HasPrefix(after, "(") {
		return "", false
	}
	return name, true
}

// keywordThenSpace reports whether line starts with keyword immediately
// followed by at least one whitespace character.
func keywordThenSpace(line, keyword string) bool {
	if !strings.HasPrefix(line, keyword) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line[len(keyword):])
	return r != utf8.RuneError && unicode.IsSpace(r)
}

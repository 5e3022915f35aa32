package notebook

import "strings"

const (
	// codeCellMarker identifies the line that declares a code cell.
	codeCellMarker = `"cell_type": "code"`

	// sourceArrayMarker identifies the line that opens a cell's source array.
	sourceArrayMarker = `"source": [`
)

// CellRange is an inclusive range of line indices covering one code cell's
// source array, from the line that opens the array to the line that closes it.
type CellRange struct {
	Start int
	End   int
}

// Len returns the number of lines in the range.
func (r CellRange) Len() int {
	return r.End - r.Start + 1
}

// scanState is the position of the cell scanner within the fixed grammar
// cell marker → array open → array lines → array close.
type scanState int

const (
	seekingCell scanState = iota
	seekingArrayOpen
	collectingArray
)

// ScanCells walks the lines of a serialized notebook and returns, in document
// order, the source array range of every code cell. Cells whose array cannot
// be delimited are skipped.
func ScanCells(lines []string) []CellRange {
	ranges, _ := scanCells(lines)
	return ranges
}

// scanCells is ScanCells plus the list of cells it had to skip.
func scanCells(lines []string) ([]CellRange, []*MalformedCellError) {
	var (
		ranges    []CellRange
		malformed []*MalformedCellError
		state     = seekingCell
		cellLine  int
		start     int
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch state {
		case seekingCell:
			if strings.Contains(line, codeCellMarker) {
				cellLine = i
				state = seekingArrayOpen
				// The array marker may share the cell marker's line
				i--
			}

		case seekingArrayOpen:
			if !strings.Contains(line, sourceArrayMarker) {
				continue
			}
			start = i
			if closesInline(line) {
				// "source": [] holds no lines of its own
				ranges = append(ranges, CellRange{Start: start, End: start})
				state = seekingCell
				continue
			}
			state = collectingArray

		case collectingArray:
			if firstNonBlank(line) == ']' {
				ranges = append(ranges, CellRange{Start: start, End: i})
				state = seekingCell
			}
		}
	}

	// Running out of lines mid-cell means no later line can delimit this cell
	// or any cell after it, so restarting the scan would find nothing more.
	switch state {
	case seekingArrayOpen:
		malformed = append(malformed, &MalformedCellError{Line: cellLine, Reason: "source array not found"})
	case collectingArray:
		malformed = append(malformed, &MalformedCellError{Line: cellLine, Reason: "source array is not closed"})
	}

	return ranges, malformed
}

// closesInline reports whether the array opened on line is also closed there.
func closesInline(line string) bool {
	idx := strings.Index(line, sourceArrayMarker)
	rest := strings.TrimLeft(line[idx+len(sourceArrayMarker):], " \t")
	return strings.HasPrefix(rest, "]")
}

// firstNonBlank returns the first byte that is not a space or tab, or 0.
func firstNonBlank(line string) byte {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return 0
	}
	return trimmed[0]
}

package notebook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for ScanCells:
// - One code cell yields the range from "source": [ to the closing ]
// - Markdown cells are never matched
// - Several code cells are yielded in document order
// - Outputs arrays between the cell marker and the source array are skipped
// - An inline empty source array yields a single-line range
// - A cell without a source array, or with an unclosed one, is skipped and diagnosed
// - Empty input yields no ranges

func docLines(s string) []string {
	return strings.Split(strings.TrimPrefix(s, "\n"), "\n")
}

func TestScanCells_SingleCodeCell(t *testing.T) {
	t.Parallel()

	doc := docLines(`
{
 "cells": [
  {
   "cell_type": "code",
   "metadata": {},
   "outputs": [],
   "source": [
    "x = 1\n",
    "y = 2"
   ]
  }
 ]
}`)

	ranges := ScanCells(doc)

	require.Len(t, ranges, 1)
	assert.Equal(t, CellRange{Start: 6, End: 9}, ranges[0])
	assert.Equal(t, 4, ranges[0].Len())
	assert.Contains(t, doc[ranges[0].Start], `"source": [`)
	assert.Equal(t, "   ]", doc[ranges[0].End])
}

func TestScanCells_SkipsMarkdown(t *testing.T) {
	t.Parallel()

	doc := docLines(`
  {
   "cell_type": "markdown",
   "source": [
    "# Not a function\n",
    "def nope():"
   ]
  },
  {
   "cell_type": "code",
   "outputs": [],
   "source": [
    "def yes():"
   ]
  }`)

	ranges := ScanCells(doc)

	require.Len(t, ranges, 1)
	assert.Equal(t, CellRange{Start: 10, End: 12}, ranges[0])
}

func TestScanCells_OutputsBeforeSource(t *testing.T) {
	t.Parallel()

	doc := docLines(`
   "cell_type": "code",
   "outputs": [
    {
     "text": [
      "120\n"
     ]
    }
   ],
   "source": [
    "print(1)"
   ]`)

	ranges := ScanCells(doc)

	require.Len(t, ranges, 1)
	assert.Equal(t, CellRange{Start: 8, End: 10}, ranges[0])
}

func TestScanCells_MultipleCellsInOrder(t *testing.T) {
	t.Parallel()

	ranges := ScanCells(readFixtureLines(t, "functions.ipynb"))

	require.Len(t, ranges, 5)
	for i := 1; i < len(ranges); i++ {
		assert.Greater(t, ranges[i].Start, ranges[i-1].End, "ranges must be ordered and disjoint")
	}
	// Empty source array of the fourth code cell
	assert.Equal(t, 1, ranges[3].Len())
}

func TestScanCells_InlineEmptySource(t *testing.T) {
	t.Parallel()

	doc := docLines(`
   "cell_type": "code",
   "source": []
  },
  {
   "cell_type": "code",
   "source": [
    "a = 1"
   ]`)

	ranges := ScanCells(doc)

	require.Len(t, ranges, 2)
	assert.Equal(t, CellRange{Start: 1, End: 1}, ranges[0])
	assert.Equal(t, CellRange{Start: 5, End: 7}, ranges[1])
}

func TestScanCells_MalformedCells(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		doc        string
		wantRanges int
		wantLine   int
		wantReason string
	}{
		{
			name: "no source array",
			doc: `
   "cell_type": "code",
   "metadata": {}`,
			wantReason: "source array not found",
		},
		{
			name: "unclosed source array",
			doc: `
   "cell_type": "code",
   "source": [
    "def f():",
    "    pass"`,
			wantReason: "source array is not closed",
		},
		{
			name: "good cell then unclosed cell",
			doc: `
   "cell_type": "code",
   "source": [
    "a = 1"
   ]
   "cell_type": "code",
   "source": [
    "b = 2"`,
			wantRanges: 1,
			wantLine:   4,
			wantReason: "source array is not closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges, malformed := scanCells(docLines(tt.doc))

			assert.Len(t, ranges, tt.wantRanges)
			require.Len(t, malformed, 1)
			assert.Equal(t, tt.wantReason, malformed[0].Reason)
			assert.Equal(t, tt.wantLine, malformed[0].Line)
			assert.Contains(t, malformed[0].Error(), "malformed code cell")
		})
	}
}

func TestScanCells_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ScanCells(nil))
	assert.Empty(t, ScanCells([]string{""}))
}

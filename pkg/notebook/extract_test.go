package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Extract:
// - Column-zero import/from lines become imports, newline terminated
// - Indented imports stay inside the enclosing body
// - Headers need `def`, whitespace, identifier, optional whitespace, `(`
// - Bodies absorb blank, indented and comment lines and stop at column zero
// - The line that ends a body is re-examined as a header
// - Nested indented defs are absorbed, not registered
// - Redefinitions inside one cell are all kept, in order
// - Mixed tab/space indentation does not end a body

func TestExtract_ImportsAndFunction(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"import math", "", "def area(r):", "    return math.pi*r*r"})

	assert.Equal(t, []string{"import math\n"}, seg.Imports)
	require.Len(t, seg.Functions, 1)
	assert.Equal(t, "area", seg.Functions[0].Name)
	assert.Equal(t, "def area(r):\n    return math.pi*r*r\n", seg.Functions[0].Body)
	assert.Equal(t, 2, seg.Functions[0].Line)
}

func TestExtract_ImportDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{"import os", true},
		{"from sys import path", true},
		{"import numpy as np", true},
		{"from typing import List, Dict, Optional", true},
		{"import\tos", true},
		{"    import os", false},
		{"\tfrom os import path", false},
		{"important = 1", false},
		{"fromage = 2", false},
		{"import", false},
		{"# import os", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, isImport(tt.line))
		})
	}
}

func TestExtract_HeaderDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line     string
		wantName string
		wantOK   bool
	}{
		{"def suma(a, b):", "suma", true},
		{"def mi_funcion_larga():", "mi_funcion_larga", true},
		{"def funcion123(x):", "funcion123", true},
		{"def spaced (x):", "spaced", true},
		{"def\tf():", "f", true},
		{"def área(r):", "área", true},
		{"    def inner():", "", false},
		{"async def f():", "", false},
		{"define(x)", "", false},
		{"def f", "", false},
		{"def (x):", "", false},
		{"def f-g():", "", false},
		{"class A:", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, ok := headerName(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestExtract_BodyStopsAtColumnZero(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{
		"def primera():",
		"    return 1",
		"",
		"def segunda():",
		"    return 2",
		"x = segunda()",
		"    y = 3",
	})

	require.Len(t, seg.Functions, 2)
	assert.Equal(t, "def primera():\n    return 1\n\n", seg.Functions[0].Body)
	assert.Equal(t, "def segunda():\n    return 2\n", seg.Functions[1].Body)
	assert.Equal(t, 3, seg.Functions[1].Line)
}

func TestExtract_CommentsAndBlankLines(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{
		"def funcion_con_espacios():",
		"",
		"    a = 1",
		"# Este es un comentario",
		"",
		"    return a",
	})

	require.Len(t, seg.Functions, 1)
	body := seg.Functions[0].Body
	assert.Contains(t, body, "# Este es un comentario")
	assert.Contains(t, body, "return a")
	assert.Equal(t, "def funcion_con_espacios():\n\n    a = 1\n# Este es un comentario\n\n    return a\n", body)
}

func TestExtract_IndentedImportAbsorbed(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"def area(r):", "    import math as m", "    return m.pi * r * r"})

	assert.Empty(t, seg.Imports)
	require.Len(t, seg.Functions, 1)
	assert.Contains(t, seg.Functions[0].Body, "    import math as m\n")
}

func TestExtract_NestedDefAbsorbed(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{
		"def outer():",
		"    def inner():",
		"        return 1",
		"    return inner()",
	})

	require.Len(t, seg.Functions, 1)
	assert.Equal(t, "outer", seg.Functions[0].Name)
	assert.Contains(t, seg.Functions[0].Body, "def inner():")
}

func TestExtract_ImportEndsBody(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"def f():", "    pass", "import os", "def g():", "    pass"})

	assert.Equal(t, []string{"import os\n"}, seg.Imports)
	require.Len(t, seg.Functions, 2)
	assert.Equal(t, "def f():\n    pass\n", seg.Functions[0].Body)
}

func TestExtract_RedefinitionKept(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"def f():", "    return 1", "def f():", "    return 2"})

	require.Len(t, seg.Functions, 2)
	assert.Equal(t, "f", seg.Functions[0].Name)
	assert.Equal(t, "f", seg.Functions[1].Name)
	assert.Contains(t, seg.Functions[1].Body, "return 2")
}

func TestExtract_MixedIndentation(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"def f():", "\tx = 1", "    return x"})

	require.Len(t, seg.Functions, 1)
	assert.Equal(t, "def f():\n\tx = 1\n    return x\n", seg.Functions[0].Body)
}

func TestExtract_NothingToExtract(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"x = 10", "y = 20", "print(x + y)"})

	assert.Empty(t, seg.Imports)
	assert.Empty(t, seg.Functions)

	seg = Extract(nil)
	assert.Empty(t, seg.Imports)
	assert.Empty(t, seg.Functions)
}

func TestExtract_HeaderAsLastLine(t *testing.T) {
	t.Parallel()

	seg := Extract([]string{"def f(x): return x"})

	require.Len(t, seg.Functions, 1)
	assert.Equal(t, "def f(x): return x\n", seg.Functions[0].Body)
}

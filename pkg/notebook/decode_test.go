package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for DecodeLine:
// - Plain quoted header line round-trips without quotes
// - Escaped quotes and backslashes decode to literal characters
// - Embedded \n produces a multi-line literal, trailing \n is dropped once
// - Every single-character escape in the JSON table
// - \u escapes: BMP, surrogate pairs, lone surrogates, short or invalid hex
// - Unknown escapes and a trailing backslash pass through literally
// - Lines that are not quoted strings decode to ""

func TestDecodeLine_HeaderRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "def f(a, b):", DecodeLine(`    "def f(a, b):\n",`))
	assert.Equal(t, "def suma(a, b):", DecodeLine(`"def suma(a, b):"`))
}

func TestDecodeLine_EscapedQuotes(t *testing.T) {
	t.Parallel()

	got := DecodeLine(`"line\nwith\"quotes\""`)

	assert.Equal(t, "line\nwith\"quotes\"", got)
	assert.NotContains(t, got, `\`)
	assert.Contains(t, got, "\n")
}

func TestDecodeLine_Escapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"quote", `"say \"hi\""`, `say "hi"`},
		{"backslash", `"ruta\\archivo"`, `ruta\archivo`},
		{"newline dropped at end", `"primera linea\n"`, "primera linea"},
		{"only one newline dropped", `"a\n\n"`, "a\n"},
		{"tab", `"a\tb"`, "a\tb"},
		{"carriage return", `"a\rb"`, "a\rb"},
		{"backspace", `"a\bb"`, "a\bb"},
		{"form feed", `"a\fb"`, "a\fb"},
		{"solidus", `"a\/b"`, "a/b"},
		{"single quote", `"it\'s"`, "it's"},
		{"unicode bmp", `"caf\u00e9"`, "café"},
		{"unicode upper hex", `"\u00C9t\u00E9"`, "Été"},
		{"surrogate pair", `"\ud83d\ude00"`, "\U0001F600"},
		{"lone surrogate", `"x\ud83dy"`, "x\uFFFDy"},
		{"invalid hex", `"\uZZZZ"`, `\uZZZZ`},
		{"short hex", `"\u12"`, `\u12`},
		{"unknown escape", `"a\qb"`, `a\qb`},
		{"trailing backslash", `"texto\"`, `texto\`},
		{"multiple escapes", `"a\\n\"b\"\n"`, `a\n"b"`},
		{"non ascii passthrough", `"ñandú"`, "ñandú"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeLine(tt.raw))
		})
	}
}

func TestDecodeLine_NotAString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"spaces only", "   \t  "},
		{"no quote", "   ],"},
		{"bracket", "["},
		{"only quotes", `""`},
		{"single quote char", `"`},
		{"quote not first", `  x "abc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, DecodeLine(tt.raw))
		})
	}
}

func TestDecodeLine_LeadingTabsAndSpaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "contenido", DecodeLine("\t  \t\"contenido\""))
}

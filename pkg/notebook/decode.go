package notebook

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// DecodeLine returns the literal text encoded by one line of a notebook's
// source array. The line must start (after spaces and tabs) with a double
// quote; everything between that quote and the last quote on the line is
// unescaped. Lines that do not carry a quoted string decode to "".
//
// One trailing newline is removed from the result because every encoded
// source line implies its own line break.
func DecodeLine(raw string) string {
	start := strings.IndexFunc(raw, func(r rune) bool { return r != ' ' && r != '\t' })
	if start < 0 || raw[start] != '"' {
		return ""
	}

	end := strings.LastIndexByte(raw, '"')
	if start+1 >= end {
		return ""
	}

	content := unescape(raw[start+1 : end])
	return strings.TrimSuffix(content, "\n")
}

// unescape expands JSON string escapes. Unknown escapes are kept verbatim.
func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		// Trailing backslash with nothing after it
		if i == len(s)-1 {
			b.WriteByte('\\')
			continue
		}

		next := s[i+1]
		switch next {
		case '"', '\\', '/', '\'':
			b.WriteByte(next)
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case 'b':
			b.WriteByte('\b')
			i++
		case 'f':
			b.WriteByte('\f')
			i++
		case 'u':
			r, consumed, ok := decodeCodePoint(s[i:])
			if !ok {
				// Emit "\u" and let the next iteration copy the rest literally
				b.WriteString(`\u`)
				i++
				continue
			}
			b.WriteRune(r)
			i += consumed - 1
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
			i++
		}
	}

	return b.String()
}

// decodeCodePoint decodes a \uXXXX escape at the start of s. A high surrogate
// immediately followed by a low surrogate escape is combined into one rune.
// Returns the rune, the number of bytes consumed, and whether s held a valid
// escape.
func decodeCodePoint(s string) (rune, int, bool) {
	hi, ok := parseHex4(s)
	if !ok {
		return 0, 0, false
	}

	if utf16.IsSurrogate(hi) {
		if lo, ok := parseHex4(s[6:]); ok {
			if r := utf16.DecodeRune(hi, lo); r != utf8.RuneError {
				return r, 12, true
			}
		}
		// Lone surrogates are not scalar values
		return utf8.RuneError, 6, true
	}

	return hi, 6, true
}

// parseHex4 parses `\uXXXX` at the start of s.
func parseHex4(s string) (rune, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}

	var r rune
	for _, c := range []byte(s[2:6]) {
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(v)
	}
	return r, true
}

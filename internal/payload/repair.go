// Repair passes for filled payload templates.
//
// DESIGN: Each pass is a pure string -> string transform. Passes that must not
// touch string literal content go through scanOutsideStrings, which tracks
// quote/escape state so JSON string bodies are copied through untouched.
package payload

import (
	"strings"
)

// Pass is one text transform in the repair sequence.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Passes is the repair sequence, applied in order.
var Passes = []Pass{
	{Name: "normalize_line_endings", Apply: NormalizeLineEndings},
	{Name: "escape_stray_backslashes", Apply: EscapeStrayBackslashes},
	{Name: "escape_control_chars", Apply: EscapeControlChars},
	{Name: "collapse_colon_whitespace", Apply: CollapseColonWhitespace},
	{Name: "remove_trailing_commas", Apply: RemoveTrailingCommas},
}

// Repair applies every pass in order.
func Repair(s string) string {
	for _, p := range Passes {
		s = p.Apply(s)
	}
	return s
}

// NormalizeLineEndings converts CRLF and lone CR to LF.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// EscapeStrayBackslashes doubles every backslash that does not begin a valid
// JSON escape sequence. Valid sequences (\" \\ \/ \b \f \n \r \t \uXXXX) are
// kept as written, so nothing is double-escaped.
func EscapeStrayBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && validEscape(s, i+1) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func validEscape(s string, i int) bool {
	switch s[i] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	case 'u':
		if i+4 >= len(s) {
			return false
		}
		for _, h := range s[i+1 : i+5] {
			if !isHex(h) {
				return false
			}
		}
		return true
	}
	return false
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// EscapeControlChars rewrites raw newlines, tabs and other control characters
// inside string literals as JSON escapes. Whitespace between tokens is kept.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\r':
			b.WriteString(`\r`)
		case c < 0x20:
			b.WriteString(`\u00`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

const hexDigits = "0123456789abcdef"

// CollapseColonWhitespace removes whitespace around colons between tokens.
func CollapseColonWhitespace(s string) string {
	return scanOutsideStrings(s, func(out *strings.Builder, seg string) {
		var pending strings.Builder
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			switch {
			case isSpace(c):
				pending.WriteByte(c)
			case c == ':':
				pending.Reset()
				out.WriteByte(':')
				for i+1 < len(seg) && isSpace(seg[i+1]) {
					i++
				}
			default:
				out.WriteString(pending.String())
				pending.Reset()
				out.WriteByte(c)
			}
		}
		out.WriteString(pending.String())
	})
}

// RemoveTrailingCommas drops a comma that is followed only by whitespace and
// then a closing brace or bracket.
func RemoveTrailingCommas(s string) string {
	return scanOutsideStrings(s, func(out *strings.Builder, seg string) {
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			if c == ',' {
				j := i + 1
				for j < len(seg) && isSpace(seg[j]) {
					j++
				}
				if j < len(seg) && (seg[j] == '}' || seg[j] == ']') {
					continue
				}
			}
			out.WriteByte(c)
		}
	})
}

// scanOutsideStrings splits s into string literals and the text between them.
// String literals are copied verbatim; fn rewrites each in-between segment.
func scanOutsideStrings(s string, fn func(out *strings.Builder, seg string)) string {
	var out strings.Builder
	out.Grow(len(s))
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		fn(&out, s[start:i])
		end := stringEnd(s, i)
		out.WriteString(s[i:end])
		start = end
		i = end - 1
	}
	fn(&out, s[start:])
	return out.String()
}

// stringEnd returns the index just past the closing quote of the literal
// opening at s[open], or len(s) when it is unterminated.
func stringEnd(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
